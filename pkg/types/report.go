package types

// IntelligenceReport is the final summary submitted for a finalized engagement.
//
// Indicator and requested-data lists are unique and hold their first-seen order.
// Channel, language and locale are opaque passthrough strings from the inbound
// envelope; downstream systems should carry them unchanged.
type IntelligenceReport struct {
	SessionID              string   `json:"sessionId"`
	ScamDetected           bool     `json:"scamDetected"`
	ScamType               string   `json:"scamType,omitempty"`
	ScamIndicators         []string `json:"scamIndicators"`
	RequestedSensitiveData []string `json:"requestedSensitiveData"`
	Channel                string   `json:"channel"`
	Language               string   `json:"language"`
	Locale                 string   `json:"locale"`
	TotalTurns             int      `json:"totalTurns"`
	AgentNotes             string   `json:"agentNotes,omitempty"`
}
