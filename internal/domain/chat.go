package domain

// Progress is the per-message snapshot of where the analysis placed the user.
type Progress struct {
	EmotionalState string  `json:"emotionalState"`
	RiskLevel      float64 `json:"riskLevel"`
}

// MessageMetadata holds optional assistant-side annotations.
type MessageMetadata struct {
	Technique string    `json:"technique,omitempty"`
	Goal      string    `json:"goal,omitempty"`
	Analysis  *Analysis `json:"analysis,omitempty"`
	Progress  *Progress `json:"progress,omitempty"`
}

// Message is one entry in a session timeline. Immutable once appended.
type Message struct {
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Timestamp Timestamp        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// ChatSession is a conversation between one user and the counselor.
// Messages is append-only: turns land as a user/assistant pair and existing
// entries are never reordered or rewritten.
type ChatSession struct {
	SessionID SessionID     `json:"sessionId"`
	UserID    UserID        `json:"userId"`
	Status    SessionStatus `json:"status"`
	Messages  []Message     `json:"messages"`
	Memory    Memory        `json:"memory"`
	StartTime Timestamp     `json:"startTime"`
	UpdatedAt Timestamp     `json:"updatedAt"`
}

// Clone returns a deep copy so stores can hand out sessions without
// sharing the message slice or memory logs with callers.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	cp.Memory = s.Memory.Clone()
	return &cp
}
