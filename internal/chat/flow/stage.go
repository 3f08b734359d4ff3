package flow

import "fleet-assistant/internal/models"

const (
	ConversionThreshold    = 70
	QualificationThreshold = 40
	DiscoveryThreshold     = 20
)

// Next is the stage transition after a turn scored score. convert is true
// only when the turn enters conversion.
//
// Only greeting can advance to discovery or qualification. Any stage other
// than conversion jumps to conversion at the conversion threshold.
func Next(stage models.Stage, score int) (next models.Stage, convert bool) {
	switch {
	case score >= ConversionThreshold && stage != models.StageConversion:
		return models.StageConversion, true
	case score >= QualificationThreshold && stage == models.StageGreeting:
		return models.StageQualification, false
	case score >= DiscoveryThreshold && stage == models.StageGreeting:
		return models.StageDiscovery, false
	default:
		return stage, false
	}
}

// StageFromMessageCount infers the stage of a reloaded conversation.
func StageFromMessageCount(n int) models.Stage {
	switch {
	case n > 10:
		return models.StageConversion
	case n > 5:
		return models.StageQualification
	case n > 2:
		return models.StageDiscovery
	default:
		return models.StageGreeting
	}
}
