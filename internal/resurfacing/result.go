package resurfacing

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Outcome says how a pass ended.
type Outcome string

const (
	OutcomeSkipped      Outcome = "skipped"
	OutcomeNoCandidates Outcome = "no_candidates"
	OutcomeSent         Outcome = "sent"
)

// Result describes one pass. Its JSON form depends on Outcome.
type Result struct {
	Outcome     Outcome
	Reason      string
	Message     string
	ProjectID   uuid.UUID
	ProjectName string
	SentTo      int
	Failed      int
	Removed     int
	AIUsed      bool
}

type skippedJSON struct {
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason"`
}

type noCandidatesJSON struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type sentJSON struct {
	Success     bool   `json:"success"`
	SentTo      int    `json:"sentTo"`
	Failed      int    `json:"failed"`
	Removed     int    `json:"removed"`
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
	AIUsed      bool   `json:"aiUsed"`
}

// MarshalJSON renders the trigger endpoint response for r.Outcome.
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Outcome {
	case OutcomeSkipped:
		return json.Marshal(skippedJSON{Success: true, Skipped: true, Reason: r.Reason})
	case OutcomeNoCandidates:
		return json.Marshal(noCandidatesJSON{Success: true, Message: r.Message})
	default:
		return json.Marshal(sentJSON{
			Success:     true,
			SentTo:      r.SentTo,
			Failed:      r.Failed,
			Removed:     r.Removed,
			ProjectID:   r.ProjectID.String(),
			ProjectName: r.ProjectName,
			AIUsed:      r.AIUsed,
		})
	}
}
