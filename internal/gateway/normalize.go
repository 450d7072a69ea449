package gateway

import (
	"encoding/json"
	"strings"

	"agent-gateway/internal/knowledge"
)

// chunkFieldSources maps each canonical chunk field to the upstream keys that
// may carry it, checked in order. The remote schema is not uniform across
// api-versions; drift is handled here and nowhere else.
var chunkFieldSources = map[string][]string{
	"ref_id":      {"ref_id", "refId", "id"},
	"content":     {"content", "text", "page_chunk"},
	"url":         {"url"},
	"source_file": {"source_file", "sourceFile", "source", "filename"},
	"page_number": {"page_number", "pageNumber"},
	"score":       {"score", "@search.rerankerScore", "reranker_score"},
	"doc_key":     {"doc_key", "docKey", "key"},
}

// Normalize converts a heterogeneous upstream payload into the canonical
// chunk list plus, in responses mode, the synthesized answer text. Order is
// preserved as returned by the server; there is no re-ranking and no
// deduplication. The ok result is false when the payload matched no known
// shape, which callers treat as zero chunks.
func Normalize(raw *knowledge.RawResponse, mode knowledge.Mode) (chunks []Chunk, answer string, ok bool) {
	if raw == nil || raw.Upstream != nil {
		return nil, "", false
	}
	switch {
	case raw.Rest != nil:
		return normalizeRest(raw.Rest.Object, mode)
	case raw.SDK != nil:
		return normalizeSDK(raw.SDK, mode)
	}
	return nil, "", false
}

// normalizeRest handles the raw REST JSON shapes: a top-level "chunks" list
// (index-scoped search) or a "response" message list (agent routes).
func normalizeRest(obj map[string]any, mode knowledge.Mode) ([]Chunk, string, bool) {
	if rawChunks, found := obj["chunks"].([]any); found {
		return mapChunks(rawChunks), "", true
	}

	rawMsgs, found := obj["response"].([]any)
	if !found {
		return nil, "", false
	}

	var items []map[string]any
	var texts []string
	for _, rm := range rawMsgs {
		m, isMap := rm.(map[string]any)
		if !isMap {
			continue
		}
		content, isList := m["content"].([]any)
		if !isList {
			continue
		}
		for _, ci := range content {
			item, isMap := ci.(map[string]any)
			if !isMap {
				continue
			}
			items = append(items, item)
			if text, _ := item["text"].(string); text != "" {
				texts = append(texts, text)
			}
		}
	}
	if len(items) == 0 {
		return nil, "", true
	}

	// An agent-route retrieve often wraps the chunk list as JSON text inside
	// the first content item.
	// When the text is itself a chunk list there is no synthesized answer.
	if embedded, found := embeddedChunks(texts); found {
		return embedded, "", true
	}

	chunks := make([]Chunk, 0, len(items))
	for i, item := range items {
		chunks = append(chunks, mapChunk(item, i))
	}
	return chunks, joinTexts(texts, mode), true
}

// normalizeSDK flattens the typed response[].content[] items the AgentClient
// produces, probing the optional provenance fields.
func normalizeSDK(payload *knowledge.SDKPayload, mode knowledge.Mode) ([]Chunk, string, bool) {
	var texts []string
	var items []knowledge.AgentContentItem
	for _, msg := range payload.Response {
		for _, item := range msg.Content {
			items = append(items, item)
			if item.Text != "" {
				texts = append(texts, item.Text)
			}
		}
	}
	if len(items) == 0 {
		return nil, "", true
	}

	if embedded, found := embeddedChunks(texts); found {
		return embedded, "", true
	}

	chunks := make([]Chunk, 0, len(items))
	for i, item := range items {
		c := Chunk{
			RefID:      i,
			Content:    item.Text,
			URL:        item.URL,
			SourceFile: item.SourceFile,
			PageNumber: item.PageNumber,
			Score:      item.Score,
			DocKey:     item.DocKey,
		}
		if item.RefID != nil {
			c.RefID = *item.RefID
		}
		chunks = append(chunks, c)
	}
	return chunks, joinTexts(texts, mode), true
}

// embeddedChunks detects the "merged retrieve" shape where the first text
// part is itself a JSON list of chunk objects.
func embeddedChunks(texts []string) ([]Chunk, bool) {
	if len(texts) == 0 {
		return nil, false
	}
	trimmed := strings.TrimSpace(texts[0])
	if !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	var rawChunks []any
	if err := json.Unmarshal([]byte(trimmed), &rawChunks); err != nil {
		return nil, false
	}
	return mapChunks(rawChunks), true
}

func joinTexts(texts []string, mode knowledge.Mode) string {
	if mode != knowledge.ModeResponses {
		return ""
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

func mapChunks(raw []any) []Chunk {
	chunks := make([]Chunk, 0, len(raw))
	for i, el := range raw {
		m, isMap := el.(map[string]any)
		if !isMap {
			continue
		}
		chunks = append(chunks, mapChunk(m, i))
	}
	return chunks
}

// mapChunk builds one canonical chunk from a raw dict, applying the field
// mapping table. A missing ref_id is coerced to the positional index; null
// valued fields are dropped.
func mapChunk(m map[string]any, index int) Chunk {
	c := Chunk{
		RefID:      index,
		Content:    stringField(m, "content"),
		URL:        stringField(m, "url"),
		SourceFile: stringField(m, "source_file"),
		DocKey:     stringField(m, "doc_key"),
	}
	if v, found := lookupField(m, "ref_id"); found {
		c.RefID = v
	}
	if n, found := numberField(m, "page_number"); found {
		page := int(n)
		c.PageNumber = &page
	}
	if n, found := numberField(m, "score"); found {
		score := n
		c.Score = &score
	}
	return c
}

// lookupField returns the first non-nil value among the accepted source keys
// for a logical field.
func lookupField(m map[string]any, logical string) (any, bool) {
	for _, key := range chunkFieldSources[logical] {
		if v, found := m[key]; found && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(m map[string]any, logical string) string {
	v, found := lookupField(m, logical)
	if !found {
		return ""
	}
	s, _ := v.(string)
	return s
}

func numberField(m map[string]any, logical string) (float64, bool) {
	v, found := lookupField(m, logical)
	if !found {
		return 0, false
	}
	n, isNum := v.(float64)
	return n, isNum
}
