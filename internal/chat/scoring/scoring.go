// Package scoring turns a visitor profile into a 0-100 lead score.
package scoring

import "fleet-assistant/internal/models"

const (
	MaxScore          = 100
	pointsPerProblem  = 5
	maxChallengeScore = 20
)

var fleetSizePoints = map[string]int{
	models.FleetSize50Plus: 40,
	models.FleetSize20To50: 30,
	models.FleetSize10To20: 20,
	models.FleetSize5To10:  10,
}

var experiencePoints = map[models.Experience]int{
	models.ExperienceExpert:       25,
	models.ExperienceIntermediate: 15,
	models.ExperienceBeginner:     5,
}

var interestPoints = []struct {
	tag    string
	points int
}{
	{models.InterestDemo, 15},
	{models.InterestBeta, 10},
	{models.InterestPricing, 5},
}

// Score is deterministic and has no side effects.
func Score(p models.UserProfile) int {
	return Breakdown(p).Total
}

// Breakdown reports each component's contribution and the capped total.
func Breakdown(p models.UserProfile) models.ScoreBreakdown {
	b := models.ScoreBreakdown{
		FleetSize:  fleetSizePoints[p.FleetSize],
		Experience: experiencePoints[p.Experience],
		Challenges: min(len(p.Challenges)*pointsPerProblem, maxChallengeScore),
	}

	for _, ip := range interestPoints {
		if p.HasInterest(ip.tag) {
			b.Interests += ip.points
		}
	}

	b.Total = min(b.FleetSize+b.Experience+b.Challenges+b.Interests, MaxScore)
	return b
}
