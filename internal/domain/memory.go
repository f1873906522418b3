package domain

// UserProfile accumulates what the analyses have said about the user.
// EmotionalState grows monotonically; RiskLevel always holds the value
// from the most recent analysis.
type UserProfile struct {
	EmotionalState []string          `json:"emotionalState"`
	RiskLevel      float64           `json:"riskLevel"`
	Preferences    map[string]string `json:"preferences"`
}

// SessionContext accumulates conversation-level signals.
type SessionContext struct {
	ConversationThemes []string `json:"conversationThemes"`
	CurrentTechnique   string   `json:"currentTechnique,omitempty"`
}

// Memory is the per-session accumulated state. It is owned by the
// ChatSession and persisted with it.
type Memory struct {
	UserProfile    UserProfile    `json:"userProfile"`
	SessionContext SessionContext `json:"sessionContext"`
}

// NewMemory returns an empty memory ready to merge into.
func NewMemory() Memory {
	return Memory{
		UserProfile: UserProfile{
			EmotionalState: []string{},
			Preferences:    map[string]string{},
		},
		SessionContext: SessionContext{
			ConversationThemes: []string{},
		},
	}
}

// Merge folds one analysis into the memory: emotional state and themes are
// appended, risk level is overwritten, and the recommended approach becomes
// the current technique.
func (m *Memory) Merge(a Analysis) {
	if a.EmotionalState != "" {
		m.UserProfile.EmotionalState = append(m.UserProfile.EmotionalState, a.EmotionalState)
	}
	if len(a.Themes) > 0 {
		m.SessionContext.ConversationThemes = append(m.SessionContext.ConversationThemes, a.Themes...)
	}
	m.UserProfile.RiskLevel = a.RiskLevel
	if a.RecommendedApproach != "" {
		m.SessionContext.CurrentTechnique = a.RecommendedApproach
	}
}

// Clone returns a deep copy of the memory.
func (m Memory) Clone() Memory {
	cp := m
	cp.UserProfile.EmotionalState = append([]string(nil), m.UserProfile.EmotionalState...)
	cp.SessionContext.ConversationThemes = append([]string(nil), m.SessionContext.ConversationThemes...)
	cp.UserProfile.Preferences = make(map[string]string, len(m.UserProfile.Preferences))
	for k, v := range m.UserProfile.Preferences {
		cp.UserProfile.Preferences[k] = v
	}
	return cp
}
