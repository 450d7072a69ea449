package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retriever.go -package=mocks agent-gateway/internal/knowledge Retriever

// Retriever issues one retrieval or responses call against a knowledge agent.
// Two implementations exist (RESTClient and AgentClient); from the caller's
// point of view they behave identically.
type Retriever interface {
	Retrieve(ctx context.Context, req Request) (*RawResponse, error)
}

// logBodyLimit bounds how much of an upstream body is kept for diagnostics.
const logBodyLimit = 500

// SynthesisInstruction tells the responses endpoint to generate a merged
// answer instead of returning raw chunks.
const SynthesisInstruction = "Answer the question based only on the indexed sources. " +
	`Cite ref_id in square brackets. If unknown, say "I don't know".`

// RESTClient calls the knowledge-agent REST routes directly.
type RESTClient struct {
	client *http.Client
}

// NewRESTClient creates a REST retrieval client with a bounded timeout.
func NewRESTClient(timeout time.Duration) *RESTClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RESTClient{client: &http.Client{Timeout: timeout}}
}

// Retrieve sends an authenticated POST to the retrieve or responses route.
// Transport failures return an error; a non-2xx status or undecodable body
// is captured in RawResponse.Upstream instead, so callers can degrade to an
// empty result.
func (c *RESTClient) Retrieve(ctx context.Context, req Request) (*RawResponse, error) {
	endpoint := restURL(req)

	payload, err := restBody(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	req.Credential.Apply(httpReq.Header)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	raw := &RawResponse{Status: resp.StatusCode, Header: resp.Header, Body: body}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw.Upstream = &UpstreamError{StatusCode: resp.StatusCode, Body: truncate(body)}
		return raw, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		raw.Upstream = &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    "response is not a JSON object",
			Body:       truncate(body),
		}
		return raw, nil
	}

	if upstream := errorEnvelope(obj, resp.StatusCode, body); upstream != nil {
		raw.Upstream = upstream
		return raw, nil
	}

	raw.Rest = &RestPayload{Object: obj}
	return raw, nil
}

// restURL builds the target URL. Retrieve mode addresses the index-scoped
// knowledge-agent search resource; responses mode addresses the agent
// resource directly.
func restURL(req Request) string {
	v := url.Values{}
	v.Set("api-version", req.APIVersion)

	if req.Mode == ModeResponses {
		return fmt.Sprintf("%s/agents/%s/responses?%s",
			req.Endpoint, url.PathEscape(req.AgentName), v.Encode())
	}
	return fmt.Sprintf("%s/indexes('%s')/knowledgeAgents('%s')/search?%s",
		req.Endpoint, req.IndexName, req.AgentName, v.Encode())
}

func restBody(req Request) ([]byte, error) {
	if req.Mode == ModeResponses {
		msgs := make([]map[string]any, 0, len(req.Messages))
		for _, m := range req.Messages {
			msgs = append(msgs, map[string]any{
				"role":    m.Role,
				"content": []map[string]any{{"type": "text", "text": m.Content}},
			})
		}
		body := map[string]any{
			"messages": msgs,
			"targetIndexParams": []map[string]any{{
				"indexName":         req.IndexName,
				"rerankerThreshold": req.RerankerThreshold,
			}},
			"citationFieldName": "source_file",
			"responseFields":    []string{"text", "doc_key", "source_file", "url"},
		}
		if req.MaxOutputSize > 0 {
			body["maxOutputSize"] = req.MaxOutputSize
		}
		return json.Marshal(body)
	}

	return json.Marshal(map[string]any{
		"query": req.Query,
		"top":   req.Top,
	})
}

// errorEnvelope detects the service's {"error":{code,message}} payload, which
// arrives with a 2xx status on some api-versions.
func errorEnvelope(obj map[string]any, status int, body []byte) *UpstreamError {
	errObj, ok := obj["error"].(map[string]any)
	if !ok {
		return nil
	}
	code, _ := errObj["code"].(string)
	message, _ := errObj["message"].(string)
	return &UpstreamError{
		StatusCode: status,
		Code:       code,
		Message:    message,
		Body:       truncate(body),
	}
}

func truncate(body []byte) string {
	if len(body) > logBodyLimit {
		return string(body[:logBodyLimit])
	}
	return string(body)
}
