package flow

import "fleet-assistant/internal/models"

const (
	GreetingText = "Hi there! I'm the fleet assistant. I can tell you how we help fleets cut fuel costs, stay on top of maintenance and keep drivers safe. How many vehicles do you manage?"
	FollowUpText = "It sounds like we could make a real difference for your fleet! The best next step is a quick call with our team. Pick whichever time suits you."

	CalendarConfirmation = "Great! I've opened our booking calendar. Pick a time that works and our team will be ready for you."
	BetaConfirmation     = "You're on the list! We'll email you as soon as your beta access is ready."
	FeaturesConfirmation = "Here's an overview of our features: live GPS tracking, maintenance scheduling, fuel analytics and driver safety scoring. Anything you'd like to dig into?"
)

var confirmations = map[string]string{
	models.ActionCalendar: CalendarConfirmation,
	models.ActionBeta:     BetaConfirmation,
	models.ActionFeatures: FeaturesConfirmation,
}

func greetingButtons() []models.Button {
	return []models.Button{
		{Text: "See Features", Action: models.ActionFeatures},
		{Text: "Join Beta", Action: models.ActionBeta},
	}
}

func followUpButtons(cfg Config) []models.Button {
	return []models.Button{
		{Text: "Book a Demo", Action: models.ActionCalendar, URL: cfg.CalendarURL},
		{Text: "Schedule a Strategy Call", Action: models.ActionCalendar, URL: cfg.StrategyCallURL},
	}
}
