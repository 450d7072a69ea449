package knowledge

import (
	"net/http"

	"agent-gateway/internal/credential"
)

// Mode selects which knowledge-agent protocol variant a retrieval uses.
type Mode string

const (
	// ModeRetrieve returns raw ranked passages without synthesis.
	ModeRetrieve Mode = "retrieve"
	// ModeResponses asks the service to also generate a merged answer.
	ModeResponses Mode = "responses"
)

// Message roles understood by the knowledge-agent protocol.
const (
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleUser      = "user"
)

// Message is a single conversational turn sent to the knowledge agent.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries everything a single retrieval call needs. All fields are
// resolved values; defaulting happens before a Request is built.
type Request struct {
	Endpoint   string
	APIVersion string
	IndexName  string
	AgentName  string
	Mode       Mode

	// Query and Top drive retrieve mode.
	Query string
	Top   int

	// Messages, RerankerThreshold and MaxOutputSize drive responses mode.
	Messages          []Message
	RerankerThreshold float64
	MaxOutputSize     int

	Credential credential.Credential
}

// RawResponse is the tagged union of everything a retrieval call can come
// back with. Exactly one of Rest, SDK or Upstream is set; Status, Header and
// Body always carry the raw HTTP exchange for diagnostics and debug output.
type RawResponse struct {
	Status int
	Header http.Header
	Body   []byte

	// Rest holds the decoded top-level JSON object from a raw REST call.
	Rest *RestPayload
	// SDK holds the typed message shape produced by the AgentClient.
	SDK *SDKPayload
	// Upstream records a non-2xx status, a service error envelope or an
	// undecodable body. It is data, not a Go error: the gateway degrades to
	// empty results instead of failing the call.
	Upstream *UpstreamError
}

// RestPayload wraps the untyped JSON object a REST call returns. The shape
// varies across api-versions ("chunks" list vs "response" message list), so
// interpretation is left to the normalizer.
type RestPayload struct {
	Object map[string]any
}

// SDKPayload is the typed response produced by the AgentClient.
type SDKPayload struct {
	Response   []AgentMessage
	References []AgentReference
}

// AgentMessage is one message returned by the agent routes.
type AgentMessage struct {
	Role    string             `json:"role"`
	Content []AgentContentItem `json:"content"`
}

// AgentContentItem is one text part of an agent message. The provenance
// fields are optional and inconsistently populated across api-versions.
type AgentContentItem struct {
	Type       string   `json:"type,omitempty"`
	Text       string   `json:"text"`
	RefID      *int     `json:"ref_id,omitempty"`
	URL        string   `json:"url,omitempty"`
	SourceFile string   `json:"source_file,omitempty"`
	PageNumber *int     `json:"page_number,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	DocKey     string   `json:"doc_key,omitempty"`
}

// AgentReference is a citation reference attached to a responses-mode reply.
type AgentReference struct {
	ID         string `json:"id,omitempty"`
	DocKey     string `json:"doc_key,omitempty"`
	SourceFile string `json:"source_file,omitempty"`
	URL        string `json:"url,omitempty"`
}

// UpstreamError captures a failed or malformed upstream exchange.
type UpstreamError struct {
	StatusCode int
	// Code and Message come from the service error envelope when present.
	Code    string
	Message string
	// Body is the raw response body, truncated for logging.
	Body string
}
