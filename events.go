package main

// Event types emitted over a session's lifecycle, in emission order. The
// stream always ends with either an error event or a complete event followed
// by final_results carrying the persistence payload.
const (
	EventInitializing  = "initializing"
	EventRoundStart    = "round_start"
	EventModelResponse = "model_response_complete"
	EventRoundComplete = "round_complete"
	EventComplete      = "complete"
	EventFinalResults  = "final_results"
	EventError         = "error"
)

// CouncilEvent is one entry in the ordered lifecycle stream consumed by the
// SSE handler or any other observer.
type CouncilEvent struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// EmitFunc receives lifecycle events as the council produces them
type EmitFunc func(CouncilEvent)

// InitializingData announces a starting session
type InitializingData struct {
	Message   string `json:"message"`
	UserQuery string `json:"user_query"`
}

// RoundStartData announces a new round
type RoundStartData struct {
	Round   int       `json:"round"`
	Kind    RoundKind `json:"type"`
	Message string    `json:"message"`
}

// ModelResponseData carries one model's finished contribution to a round
type ModelResponseData struct {
	Round           int            `json:"round"`
	Model           string         `json:"model"`
	Response        string         `json:"response"`
	Parsed          *ParsedOpinion `json:"parsed_json,omitempty"`
	CompletedModels int            `json:"completed_models"`
	TotalModels     int            `json:"total_models"`
}

// RoundCompleteData carries a settled round together with its assessment
type RoundCompleteData struct {
	Round            int             `json:"round"`
	Kind             RoundKind       `json:"type"`
	Opinions         []OpinionRecord `json:"responses"`
	Assessment       *Assessment     `json:"chairman_assessment"`
	IsConverged      bool            `json:"is_converged"`
	ConvergenceScore float64         `json:"convergence_score"`
}

// FinalResult is the conclusion attributed to the chairman
type FinalResult struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// SessionMetadata records which round converged, if any
type SessionMetadata struct {
	ConvergedRound *int `json:"converged_round"`
}

// SessionSummary is the payload of the complete and final_results events
type SessionSummary struct {
	AllRounds   []*RoundResult  `json:"all_rounds"`
	FinalResult FinalResult     `json:"final_result"`
	Metadata    SessionMetadata `json:"metadata"`
}
