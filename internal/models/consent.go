// internal/models/consent.go
package models

import "time"

type ConsentCategory string

const (
	ConsentEssential  ConsentCategory = "essential"
	ConsentFunctional ConsentCategory = "functional"
	ConsentAnalytics  ConsentCategory = "analytics"
	ConsentMarketing  ConsentCategory = "marketing"
)

// ConsentPreferences is the visitor's cookie consent. Essential is always granted.
type ConsentPreferences struct {
	Essential  bool      `json:"essential"`
	Functional bool      `json:"functional"`
	Analytics  bool      `json:"analytics"`
	Marketing  bool      `json:"marketing"`
	Timestamp  time.Time `json:"timestamp"`
}

func DefaultConsent() ConsentPreferences {
	return ConsentPreferences{Essential: true}
}

func (c ConsentPreferences) Allows(category ConsentCategory) bool {
	switch category {
	case ConsentEssential:
		return true
	case ConsentFunctional:
		return c.Functional
	case ConsentAnalytics:
		return c.Analytics
	case ConsentMarketing:
		return c.Marketing
	default:
		return false
	}
}
