package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserProfile_Merge(t *testing.T) {
	p := UserProfile{FleetSize: FleetSize5To10, Challenges: []string{ChallengeTracking}, Name: "Dana"}

	p.Merge(UserProfile{
		FleetSize:  FleetSize20To50,
		Challenges: []string{ChallengeTracking, ChallengeFuelCosts},
		Email:      "dana@fleet.example",
	})

	assert.Equal(t, FleetSize20To50, p.FleetSize)
	assert.Equal(t, []string{ChallengeTracking, ChallengeFuelCosts}, p.Challenges)
	assert.Equal(t, "Dana", p.Name)
	assert.Equal(t, "dana@fleet.example", p.Email)
	assert.Nil(t, p.Interests)
}

func TestConversationRecord_CloneIsIndependent(t *testing.T) {
	now := time.Now()
	rec := NewConversationRecord("session_1", now)
	rec.Messages = append(rec.Messages, NewMessage(MessageTypeUser, "hi", nil, now))
	rec.UserContext.Challenges = append(rec.UserContext.Challenges, ChallengeCompliance)

	clone := rec.Clone()
	clone.Messages[0].Content = "changed"
	clone.UserContext.Challenges[0] = ChallengeTracking

	assert.Equal(t, "hi", rec.Messages[0].Content)
	assert.Equal(t, ChallengeCompliance, rec.UserContext.Challenges[0])
}

func TestConsentPreferences_Allows(t *testing.T) {
	c := DefaultConsent()
	assert.True(t, c.Allows(ConsentEssential))
	assert.False(t, c.Allows(ConsentAnalytics))

	c.Analytics = true
	assert.True(t, c.Allows(ConsentAnalytics))
	assert.False(t, c.Allows(ConsentMarketing))
	assert.False(t, c.Allows(ConsentCategory("unknown")))
}

func TestTranscriptFrom(t *testing.T) {
	now := time.Now()
	msgs := []Message{
		NewMessage(MessageTypeBot, "hello", nil, now),
		NewMessage(MessageTypeUser, "we run 30 trucks", nil, now),
		NewMessage(MessageTypeAction, "clicked beta", nil, now),
		NewMessage(MessageTypeBot, "great", nil, now),
	}

	lines := TranscriptFrom(msgs, 2)
	assert.Len(t, lines, 2)
	assert.Equal(t, "we run 30 trucks", lines[0].Content)
	assert.Equal(t, MessageTypeBot, lines[1].Role)
}
