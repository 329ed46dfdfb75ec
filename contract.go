package main

import (
	"encoding/json"
	"strconv"
	"strings"
)

// stripCodeFence removes surrounding markdown code fence markers.
// Accepts text with or without a fence.
func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// ParseOpinion converts a model's raw response into a ParsedOpinion.
// Returns nil when the text is not valid JSON; the caller keeps the raw
// text either way. A syntactically valid opinion is never rejected: a
// missing summary is synthesized from the leading viewpoints, missing
// viewpoints from the summary, and anything still absent gets an empty
// default.
func ParseOpinion(raw string) *ParsedOpinion {
	cleaned := stripCodeFence(raw)

	var opinion ParsedOpinion
	if err := json.Unmarshal([]byte(cleaned), &opinion); err != nil {
		return nil
	}

	if opinion.Summary == "" && len(opinion.Viewpoints) > 0 {
		n := len(opinion.Viewpoints)
		if n > 2 {
			n = 2
		}
		opinion.Summary = strings.Join(opinion.Viewpoints[:n], "; ")
	}
	if len(opinion.Viewpoints) == 0 && opinion.Summary != "" {
		opinion.Viewpoints = []string{opinion.Summary}
	}

	if opinion.Viewpoints == nil {
		opinion.Viewpoints = []string{}
	}
	if opinion.Conflicts == nil {
		opinion.Conflicts = []string{}
	}
	if opinion.Suggestions == nil {
		opinion.Suggestions = []string{}
	}
	if opinion.ConsensusAnalysis == nil {
		opinion.ConsensusAnalysis = []string{}
	}
	if opinion.ConflictAnalysis == nil {
		opinion.ConflictAnalysis = []string{}
	}

	return &opinion
}

// assessmentWire tolerates the loose typing chairman models produce:
// convergence_score may arrive as a number, a quoted number, or junk.
type assessmentWire struct {
	ConvergenceScore          interface{} `json:"convergence_score"`
	IsConverged               bool        `json:"is_converged"`
	ConsensusPoints           []string    `json:"consensus_points"`
	ConflictPoints            []string    `json:"conflict_points"`
	Explanation               string      `json:"explanation"`
	QuestionsForNextRound     []string    `json:"questions_for_next_round"`
	FinalIntegratedConclusion string      `json:"final_integrated_conclusion"`
}

// ParseAssessment converts the chairman's raw response into an Assessment.
// Returns nil when the text is not valid JSON. Missing fields are backfilled
// with empty defaults and the score is coerced to a float64, so a parse
// success always yields a fully populated contract.
func ParseAssessment(raw string) *Assessment {
	cleaned := stripCodeFence(raw)

	var wire assessmentWire
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil
	}

	assessment := &Assessment{
		ConvergenceScore:          coerceScore(wire.ConvergenceScore),
		IsConverged:               wire.IsConverged,
		ConsensusPoints:           wire.ConsensusPoints,
		ConflictPoints:            wire.ConflictPoints,
		Explanation:               wire.Explanation,
		QuestionsForNextRound:     wire.QuestionsForNextRound,
		FinalIntegratedConclusion: wire.FinalIntegratedConclusion,
	}

	if assessment.ConsensusPoints == nil {
		assessment.ConsensusPoints = []string{}
	}
	if assessment.ConflictPoints == nil {
		assessment.ConflictPoints = []string{}
	}
	if assessment.QuestionsForNextRound == nil {
		assessment.QuestionsForNextRound = []string{}
	}

	return assessment
}

// coerceScore converts a loosely typed convergence score to a float64.
// Anything non-numeric becomes 0.0.
func coerceScore(v interface{}) float64 {
	switch s := v.(type) {
	case float64:
		return s
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0.0
}
