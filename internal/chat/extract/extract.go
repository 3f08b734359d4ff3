// Package extract updates a visitor profile from free text with an ordered keyword table.
package extract

import (
	"regexp"
	"strings"

	"fleet-assistant/internal/models"
)

type rule struct {
	keywords []string
	apply    func(p *models.UserProfile)
}

// group is a set of rules. In a first-match group only the earliest matching rule applies.
type group struct {
	name       string
	firstMatch bool
	rules      []rule
}

func setFleet(band string) func(*models.UserProfile) {
	return func(p *models.UserProfile) { p.FleetSize = band }
}

func setExperience(level models.Experience) func(*models.UserProfile) {
	return func(p *models.UserProfile) { p.Experience = level }
}

func addChallenge(tag string) func(*models.UserProfile) {
	return func(p *models.UserProfile) { p.Challenges = addTag(p.Challenges, tag) }
}

func addInterest(tag string) func(*models.UserProfile) {
	return func(p *models.UserProfile) { p.Interests = addTag(p.Interests, tag) }
}

var groups = []group{
	{
		name:       "fleetSize",
		firstMatch: true,
		rules: []rule{
			{[]string{"50"}, setFleet(models.FleetSize50Plus)},
			{[]string{"20", "30", "40"}, setFleet(models.FleetSize20To50)},
			{[]string{"10", "15"}, setFleet(models.FleetSize10To20)},
			{[]string{"5", "few"}, setFleet(models.FleetSize5To10)},
		},
	},
	{
		name:       "experience",
		firstMatch: true,
		rules: []rule{
			{[]string{"expert", "veteran", "decade", "many years"}, setExperience(models.ExperienceExpert)},
			{[]string{"intermediate", "some experience", "few years"}, setExperience(models.ExperienceIntermediate)},
			{[]string{"beginner", "new to", "just started", "starting out"}, setExperience(models.ExperienceBeginner)},
		},
	},
	{
		name: "challenges",
		rules: []rule{
			{[]string{"fuel", "gas"}, addChallenge(models.ChallengeFuelCosts)},
			{[]string{"maintenance", "repair", "breakdown"}, addChallenge(models.ChallengeMaintenance)},
			{[]string{"track", "gps", "location"}, addChallenge(models.ChallengeTracking)},
			{[]string{"compliance", "regulation", "eld", "dot "}, addChallenge(models.ChallengeCompliance)},
			{[]string{"safety", "accident", "driver behavior"}, addChallenge(models.ChallengeDriverSafety)},
		},
	},
	{
		name: "interests",
		rules: []rule{
			{[]string{"demo", "call", "meeting"}, addInterest(models.InterestDemo)},
			{[]string{"beta", "trial", "early access"}, addInterest(models.InterestBeta)},
			{[]string{"price", "pricing", "cost"}, addInterest(models.InterestPricing)},
		},
	},
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	namePattern  = regexp.MustCompile(`(?i:my name is|i'm)\s+([A-Z][A-Za-z'\-]+)`)
)

// notNames are capitalised words that commonly follow "I'm" without being a name.
var notNames = map[string]bool{
	"looking": true, "interested": true, "trying": true, "just": true, "not": true,
	"here": true, "from": true, "with": true, "curious": true, "wondering": true,
	"currently": true, "running": true, "managing": true, "planning": true,
	"new": true, "still": true, "also": true, "really": true, "ready": true,
	"going": true, "in": true, "at": true, "on": true, "the": true, "a": true,
	"an": true, "calling": true, "reaching": true, "asking": true, "sure": true,
}

// Update applies every rule group to text and returns the new profile with
// the names of the groups that matched. The input profile is not modified.
func Update(profile models.UserProfile, text string) (models.UserProfile, []string) {
	out := profile.Clone()
	folded := strings.ToLower(text)

	var matched []string
	for _, g := range groups {
		hit := false
		for _, r := range g.rules {
			if !containsAny(folded, r.keywords) {
				continue
			}
			r.apply(&out)
			hit = true
			if g.firstMatch {
				break
			}
		}
		if hit {
			matched = append(matched, g.name)
		}
	}

	if out.Email == "" {
		if email := emailPattern.FindString(text); email != "" {
			out.Email = strings.ToLower(email)
			matched = append(matched, "email")
		}
	}
	if out.Name == "" {
		if name := findName(text); name != "" {
			out.Name = name
			matched = append(matched, "name")
		}
	}

	return out, matched
}

func findName(text string) string {
	for _, m := range namePattern.FindAllStringSubmatch(text, -1) {
		if !notNames[strings.ToLower(m[1])] {
			return m[1]
		}
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func addTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}
