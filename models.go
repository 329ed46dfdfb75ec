package main

import "time"

// ChatMessage is a single role-tagged message sent to a model
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ParsedOpinion is the structured opinion contract each council model is
// asked to produce every round. Summary, Viewpoints and FinalAnswerCandidate
// are required and backfilled by the validator; the remaining fields are
// pass-through data whose meaning belongs to the prompt, not the engine.
type ParsedOpinion struct {
	Summary              string   `json:"summary"`
	Viewpoints           []string `json:"viewpoints"`
	Conflicts            []string `json:"conflicts,omitempty"`
	Suggestions          []string `json:"suggestions,omitempty"`
	ConsensusAnalysis    []string `json:"consensus_analysis,omitempty"`
	ConflictAnalysis     []string `json:"conflict_analysis,omitempty"`
	FinalAnswerCandidate string   `json:"final_answer_candidate"`
}

// OpinionRecord is one model's contribution to a round. The raw response is
// always preserved; Parsed is nil when the model did not produce valid JSON.
type OpinionRecord struct {
	Model    string         `json:"model"`
	Response string         `json:"response"`
	Parsed   *ParsedOpinion `json:"parsed_json,omitempty"`
}

// RoundKind distinguishes the opening round from the follow-up rounds
type RoundKind string

const (
	// RoundDivergent is the first round: models build on each other's
	// answers sequentially before any convergence judgment exists.
	RoundDivergent RoundKind = "divergent"

	// RoundConvergent is any later round: models answer the chairman's
	// questions independently and in parallel.
	RoundConvergent RoundKind = "convergent"
)

// RoundResult holds everything produced in one discussion round. The
// assessment is attached once by the council after evaluation.
type RoundResult struct {
	Round      int             `json:"round"`
	Kind       RoundKind       `json:"type"`
	Opinions   []OpinionRecord `json:"responses"`
	Assessment *Assessment     `json:"chairman_assessment,omitempty"`
}

// Assessment is the chairman's structured judgment of a completed round.
// The engine guarantees IsConverged is only true when ConvergenceScore has
// reached the configured threshold, regardless of what the chairman said.
type Assessment struct {
	ConvergenceScore          float64  `json:"convergence_score"`
	IsConverged               bool     `json:"is_converged"`
	ConsensusPoints           []string `json:"consensus_points"`
	ConflictPoints            []string `json:"conflict_points"`
	Explanation               string   `json:"explanation"`
	QuestionsForNextRound     []string `json:"questions_for_next_round"`
	FinalIntegratedConclusion string   `json:"final_integrated_conclusion"`
}

// SessionOutcome records how a session ended. ConvergedAtRound is nil when
// the round limit was reached before the chairman judged the discussion stable.
type SessionOutcome struct {
	ConvergedAtRound *int   `json:"converged_at_round"`
	FinalConclusion  string `json:"final_conclusion"`
}

// CouncilSession is the full record of one council run: the query, every
// round in order, and the terminal outcome. It is sealed at termination and
// is the unit handed to storage.
type CouncilSession struct {
	Query   string         `json:"query"`
	Rounds  []*RoundResult `json:"rounds"`
	Outcome SessionOutcome `json:"outcome"`
}

// Message represents a single message in a conversation
type Message struct {
	Role    string          `json:"role"`
	Content string          `json:"content,omitempty"`
	Session *CouncilSession `json:"session,omitempty"`
}

// Conversation represents a full conversation with all messages
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
}

// ConversationMetadata represents conversation list metadata
type ConversationMetadata struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
}

// ModelReply is a model's generated answer as returned by the gateway
type ModelReply struct {
	Content          string      `json:"content"`
	ReasoningDetails interface{} `json:"reasoning_details,omitempty"`
}

// AgentReply pairs a model with its reply in a fan-out batch. A nil Reply
// marks a model that errored or timed out.
type AgentReply struct {
	Model string
	Reply *ModelReply
}

// OpenRouterRequest represents a request to OpenRouter API
type OpenRouterRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// OpenRouterAPIResponse represents the full API response structure
type OpenRouterAPIResponse struct {
	Choices []struct {
		Message struct {
			Content          string      `json:"content"`
			ReasoningDetails interface{} `json:"reasoning_details,omitempty"`
		} `json:"message"`
	} `json:"choices"`
}

// SendMessageRequest represents a request to send a message
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse represents the response after sending a message
type SendMessageResponse struct {
	Session *CouncilSession `json:"session"`
}
