package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Analysis is the structured assessment the model produces for one message.
type Analysis struct {
	EmotionalState      string   `json:"emotionalState"`
	Themes              []string `json:"themes"`
	RiskLevel           float64  `json:"riskLevel"`
	RecommendedApproach string   `json:"recommendedApproach"`
	ProgressIndicators  []string `json:"progressIndicators"`
}

// DefaultAnalysis is the neutral fallback used whenever the model call
// fails or returns something undecodable. Analysis failures never block
// a reply.
func DefaultAnalysis() Analysis {
	return Analysis{
		EmotionalState:      "neutral",
		Themes:              []string{},
		RiskLevel:           0,
		RecommendedApproach: "supportive",
		ProgressIndicators:  []string{},
	}
}

// ParseAnalysis decodes the model's JSON output. The model is told to
// return bare JSON but still wraps it in markdown fences often enough
// that we strip them before decoding.
func ParseAnalysis(raw string) (Analysis, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var a Analysis
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return Analysis{}, fmt.Errorf("decoding analysis: %w", err)
	}
	if a.Themes == nil {
		a.Themes = []string{}
	}
	if a.ProgressIndicators == nil {
		a.ProgressIndicators = []string{}
	}
	return a, nil
}
