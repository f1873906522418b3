package stressgate

import (
	"math/rand/v2"
	"strings"
)

// Keywords is the trigger vocabulary, checked in order: the first keyword
// contained in the lower-cased message wins.
var Keywords = []string{
	"stress",
	"anxiety",
	"panic",
	"nervous",
	"pressure",
	"overwhelmed",
	"tense",
}

// CalmingActivity is one entry from the fixed menu offered instead of a
// conversational reply.
type CalmingActivity struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Activities is the fixed menu of calming interventions.
var Activities = []CalmingActivity{
	{Type: "breathing", Title: "Breathing Exercise", Description: "Follow calming breathing patterns"},
	{Type: "waves", Title: "Ocean Waves", Description: "Relax with wave sounds and visuals"},
	{Type: "garden", Title: "Zen Garden", Description: "Create a peaceful digital garden"},
	{Type: "forest", Title: "Mindful Forest", Description: "Take a calm virtual forest walk"},
}

// Signal reports which keyword matched and the suggested activity.
type Signal struct {
	Trigger  string          `json:"trigger"`
	Activity CalmingActivity `json:"activity"`
}

// Gate classifies raw messages against the trigger vocabulary. The
// randomness source is injectable so tests can pin the selected activity.
type Gate struct {
	pick func(n int) int
}

// New builds a gate. Pass nil to use the default randomness source.
func New(pick func(n int) int) *Gate {
	if pick == nil {
		pick = rand.IntN
	}
	return &Gate{pick: pick}
}

// Classify returns a non-nil signal when the message contains a trigger
// keyword, nil otherwise. Pure with respect to external state.
func (g *Gate) Classify(text string) *Signal {
	lowered := strings.ToLower(text)
	for _, kw := range Keywords {
		if strings.Contains(lowered, kw) {
			return &Signal{
				Trigger:  kw,
				Activity: Activities[g.pick(len(Activities))],
			}
		}
	}
	return nil
}
