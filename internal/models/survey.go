// internal/models/survey.go
package models

import "time"

// SurveyResponse is one submission of the multi-step qualification survey.
type SurveyResponse struct {
	ID          string     `json:"id"`
	CompanyName string     `json:"companyName"`
	ContactName string     `json:"contactName"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	FleetSize   string     `json:"fleetSize"`
	Experience  Experience `json:"experience,omitempty"`
	Challenges  []string   `json:"challenges"`
	Interests   []string   `json:"interests"`
	LeadScore   int        `json:"leadScore"`
	SubmittedAt time.Time  `json:"submittedAt"`
}

// Profile maps the answers onto the chat profile so both paths score identically.
func (s SurveyResponse) Profile() UserProfile {
	return UserProfile{
		FleetSize:  s.FleetSize,
		Experience: s.Experience,
		Challenges: append([]string(nil), s.Challenges...),
		Interests:  append([]string(nil), s.Interests...),
		Name:       s.ContactName,
		Email:      s.Email,
	}
}
