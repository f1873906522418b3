package session

import (
	"encoding/json"
	"fmt"

	"github.com/halcyonlabs/halcyon/internal/domain"
)

// SystemPrompt is the counselor's standing instruction, sent with every
// response generation and carried on the turn event for the durable worker.
const SystemPrompt = `You are an AI therapist assistant. Your role is to:
1. Provide empathetic and supportive responses
2. Use evidence-based therapeutic techniques
3. Maintain professional boundaries
4. Monitor for risk factors
5. Guide users toward their therapeutic goals`

// FallbackReply is returned whenever response generation fails. A turn
// that passed the gate always yields a reply.
const FallbackReply = "I'm here to support you. Could you tell me more about what's on your mind?"

type promptContext struct {
	Memory domain.Memory `json:"memory"`
	Goals  []string      `json:"goals"`
}

// BuildAnalysisPrompt asks the model for a structured assessment of one
// message. The model is told to return bare JSON; ParseAnalysis strips
// markdown fences anyway.
func BuildAnalysisPrompt(message string, memory domain.Memory, goals []string) string {
	if goals == nil {
		goals = []string{}
	}
	ctxJSON, _ := json.Marshal(promptContext{Memory: memory, Goals: goals})

	return fmt.Sprintf(`Analyze this therapy message and provide insights. Return ONLY a valid JSON object with no markdown formatting or additional text.
Message: %s
Context: %s

Required JSON structure:
{
  "emotionalState": "string",
  "themes": ["string"],
  "riskLevel": number,
  "recommendedApproach": "string",
  "progressIndicators": ["string"]
}`, message, ctxJSON)
}

// BuildResponsePrompt asks the model for the therapeutic reply, grounded
// in the assessment and the accumulated memory. An empty systemPrompt
// falls back to the standing instruction.
func BuildResponsePrompt(systemPrompt, message string, analysis domain.Analysis, memory domain.Memory, goals []string) string {
	if systemPrompt == "" {
		systemPrompt = SystemPrompt
	}
	if goals == nil {
		goals = []string{}
	}
	analysisJSON, _ := json.Marshal(analysis)
	memoryJSON, _ := json.Marshal(memory)
	goalsJSON, _ := json.Marshal(goals)

	return fmt.Sprintf(`%s

Based on the following context, generate a therapeutic response:
Message: %s
Analysis: %s
Memory: %s
Goals: %s

Provide a response that:
1. Addresses the immediate emotional needs
2. Uses appropriate therapeutic techniques
3. Shows empathy and understanding
4. Maintains professional boundaries
5. Considers safety and well-being`, systemPrompt, message, analysisJSON, memoryJSON, goalsJSON)
}
