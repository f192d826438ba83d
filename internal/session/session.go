// Package session holds per-engagement conversation state and the keyed
// stores that persist it. All mutation for a given session identifier is
// serialized by the store; different sessions never block one another.
package session

import "time"

// Sender tags one side of the transcript.
type Sender string

const (
	SenderCounterpart Sender = "counterpart"
	SenderAgent       Sender = "agent"
)

// Message is a single transcript entry. Immutable once appended.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the state of one engagement with a counterpart.
//
// Turns counts processed inbound counterpart messages only (+1 each); agent
// replies live in the transcript but do not advance the counter. Indicator
// slices are unique and keep first-seen order, and only ever grow. Finalized
// is a one-way transition guarded by the store's per-session serialization.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"` // optimistic locking for the Redis driver

	Turns        int       `json:"turns"`
	ScamDetected bool      `json:"scam_detected"`
	ScamType     string    `json:"scam_type,omitempty"`
	Finalized    bool      `json:"finalized"`
	Transcript   []Message `json:"transcript"`

	ScamIndicators []string `json:"scam_indicators"`
	RequestedData  []string `json:"requested_data"`

	// Opaque passthrough metadata from the first envelope that carried it.
	Channel  string `json:"channel,omitempty"`
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// Append adds a transcript entry stamped with the current time.
func (s *Session) Append(sender Sender, text string) {
	s.Transcript = append(s.Transcript, Message{Sender: sender, Text: text, Timestamp: time.Now().UTC()})
}

// AddIndicators unions new tags into the session's sets, preserving
// first-seen order. Tags are never removed.
func (s *Session) AddIndicators(indicators, requested []string) {
	s.ScamIndicators = union(s.ScamIndicators, indicators)
	s.RequestedData = union(s.RequestedData, requested)
}

func union(have, add []string) []string {
	for _, tag := range add {
		seen := false
		for _, existing := range have {
			if existing == tag {
				seen = true
				break
			}
		}
		if !seen {
			have = append(have, tag)
		}
	}
	return have
}

// Clone returns a deep copy safe to read outside the store's lock.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Transcript = append([]Message(nil), s.Transcript...)
	cp.ScamIndicators = append([]string(nil), s.ScamIndicators...)
	cp.RequestedData = append([]string(nil), s.RequestedData...)
	return &cp
}
