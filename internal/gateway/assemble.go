package gateway

import (
	"encoding/json"
	"strings"

	"agent-gateway/internal/knowledge"
)

// NoAnswerSentinel replaces an empty synthesized answer so callers never see
// an empty success.
const NoAnswerSentinel = "⚠️ The knowledge agent returned no answer."

// MarshalChunks serializes a chunk list as JSON, "[]" when empty, never an
// empty string, so callers can always safely parse it.
func MarshalChunks(chunks []Chunk) string {
	if len(chunks) == 0 {
		return "[]"
	}
	out, err := json.Marshal(chunks)
	if err != nil {
		return "[]"
	}
	return string(out)
}

// assemble builds the caller-facing result for one call. Retrieve mode always
// returns the serialized chunk list; responses mode returns the answer, with
// the source list attached when requested.
func assemble(mode knowledge.Mode, chunks []Chunk, answer string, includeSources bool) Result {
	if mode != knowledge.ModeResponses {
		return Result{Text: MarshalChunks(chunks)}
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = NoAnswerSentinel
	}

	if !includeSources {
		return Result{Text: answer}
	}

	if chunks == nil {
		chunks = []Chunk{}
	}
	return Result{
		Answer:  answer + sourcesSection(chunks),
		Sources: chunks,
		JSON:    true,
	}
}
