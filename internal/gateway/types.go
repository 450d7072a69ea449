package gateway

import "agent-gateway/internal/knowledge"

// Request is one gateway invocation. Question or History must carry a user
// question; everything else is an optional override of the process defaults.
type Request struct {
	// Question is the user's question. Ignored when History is supplied.
	Question string
	// History is an optional conversation; the last user turn becomes the
	// effective question.
	History []knowledge.Message

	IndexName         string
	AgentName         string
	RerankerThreshold *float64
	MaxOutputSize     int
	TopK              int

	// Mode selects the protocol variant; empty means retrieve.
	Mode knowledge.Mode
	// Debug returns the pretty-printed raw upstream payload instead of a
	// normalized result.
	Debug bool
	// IncludeSources attaches the normalized chunk list to a responses-mode
	// answer.
	IncludeSources bool
}

// Chunk is the canonical retrieved passage. Absent optional fields are
// omitted from the serialized form, never emitted as null.
type Chunk struct {
	RefID      any      `json:"ref_id"`
	Content    string   `json:"content"`
	URL        string   `json:"url,omitempty"`
	SourceFile string   `json:"source_file,omitempty"`
	PageNumber *int     `json:"page_number,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	DocKey     string   `json:"doc_key,omitempty"`
}

// Result is the gateway's stable output contract. Constructed per call, never
// persisted.
type Result struct {
	// Text is the plain-text payload: the serialized chunk list in retrieve
	// mode (always valid JSON, "[]" when empty), the answer in responses
	// mode, or the raw payload in debug mode.
	Text string

	// Answer and Sources are set instead of Text when the result should be
	// rendered as a JSON object; JSON reports that case.
	Answer  string
	Sources []Chunk
	JSON    bool
}
