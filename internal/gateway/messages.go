package gateway

import (
	"strings"

	"agent-gateway/internal/knowledge"
)

// BuildMessages converts a single question or a conversational history into
// the ordered message list the remote protocol expects, and returns the
// effective question alongside it. In responses mode the list is preceded by
// the fixed synthesis instruction so the remote model merges an answer
// instead of returning raw chunks.
//
// When a history is supplied it is scanned in reverse for the last user turn
// (entries without a role count as user turns). No user turn means there is
// nothing to ask: the gateway fails fast rather than silently sending an
// empty query.
func BuildMessages(question string, history []knowledge.Message, mode knowledge.Mode) ([]knowledge.Message, string, error) {
	effective := strings.TrimSpace(question)

	if len(history) > 0 {
		effective = ""
		for i := len(history) - 1; i >= 0; i-- {
			m := history[i]
			if m.Role == knowledge.RoleUser || m.Role == "" {
				effective = strings.TrimSpace(m.Content)
				break
			}
		}
	}

	if effective == "" {
		return nil, "", ErrEmptyQuery
	}

	var msgs []knowledge.Message
	if mode == knowledge.ModeResponses {
		msgs = append(msgs, knowledge.Message{
			Role:    knowledge.RoleAssistant,
			Content: knowledge.SynthesisInstruction,
		})
	}
	msgs = append(msgs, knowledge.Message{Role: knowledge.RoleUser, Content: effective})

	return msgs, effective, nil
}
