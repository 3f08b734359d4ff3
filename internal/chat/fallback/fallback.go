// Package fallback holds the canned replies used when the AI endpoint cannot answer.
package fallback

import (
	"strings"

	"fleet-assistant/internal/models"
)

const (
	FleetReply   = "I'd love to learn more about your fleet! How many vehicles are you currently managing, and what's your biggest operational challenge right now?"
	PricingReply = "Our pricing scales with fleet size so you only pay for what you use. I can connect you with our team for a tailored quote, or you can join the beta for early-access pricing."
	BetaReply    = "Our beta program is open! Beta members get early access to new features and founder pricing. Want me to add you to the waitlist?"
	DemoReply    = "I'd be happy to set up a demo! Our team can walk you through live tracking, maintenance alerts and fuel reporting for your fleet. Pick a time that works for you."
	GenericReply = "Thanks for reaching out! I'm here to help you get more out of your fleet. Tell me a bit about your vehicles and the challenges you're facing."
	TroubleReply = "I'm having trouble connecting right now. You can still book a call with our team or join the beta, and we'll get back to you shortly."
)

var replyTable = []struct {
	keywords []string
	reply    string
}{
	{[]string{"fleet", "vehicle", "truck"}, FleetReply},
	{[]string{"pricing", "cost", "price"}, PricingReply},
	{[]string{"beta", "trial"}, BetaReply},
	{[]string{"demo", "call"}, DemoReply},
}

// Reply picks a canned reply by keyword priority. It never returns an empty string.
func Reply(userText string) string {
	folded := strings.ToLower(userText)
	for _, entry := range replyTable {
		for _, k := range entry.keywords {
			if strings.Contains(folded, k) {
				return entry.reply
			}
		}
	}
	return GenericReply
}

// ConnectionTrouble is shown when the endpoint answered but gave no text.
func ConnectionTrouble() (string, []models.Button) {
	return TroubleReply, []models.Button{
		{Text: "Book a Call", Action: models.ActionCalendar},
		{Text: "Join Beta", Action: models.ActionBeta},
	}
}

// IsFallback reports whether text is one of the canned replies.
func IsFallback(text string) bool {
	switch text {
	case FleetReply, PricingReply, BetaReply, DemoReply, GenericReply, TroubleReply:
		return true
	}
	return false
}
