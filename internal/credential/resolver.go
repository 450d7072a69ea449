package credential

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// SearchScope is the token scope for the Azure AI Search data plane.
const SearchScope = "https://search.azure.com/.default"

// expirySkew is how long before a token's expiry we stop reusing it.
const expirySkew = 2 * time.Minute

// Credential is an opaque search credential: either a static API key or a
// bearer token with an expiry. Exactly one of APIKey and Token is set.
type Credential struct {
	APIKey    string
	Token     string
	ExpiresOn time.Time
}

// Apply sets the matching auth header on h. API key and bearer auth are
// mutually exclusive.
func (c Credential) Apply(h http.Header) {
	if c.APIKey != "" {
		h.Set("api-key", c.APIKey)
		return
	}
	h.Set("Authorization", "Bearer "+c.Token)
}

// Resolver produces a usable credential for the search backend. A configured
// API key wins unconditionally; otherwise a bearer token is acquired from the
// ambient identity chain and cached until near expiry. Resolve performs no
// retries: retry policy belongs to the caller.
type Resolver struct {
	apiKey string

	mu       sync.Mutex
	provider azcore.TokenCredential
	cached   Credential
}

// NewResolver returns a Resolver. Pass an empty apiKey to use the ambient
// identity chain (managed identity, CLI login, environment).
func NewResolver(apiKey string) *Resolver {
	return &Resolver{apiKey: apiKey}
}

// NewResolverWithProvider returns a Resolver backed by an explicit token
// provider instead of the default identity chain.
func NewResolverWithProvider(apiKey string, provider azcore.TokenCredential) *Resolver {
	return &Resolver{apiKey: apiKey, provider: provider}
}

// Resolve returns a credential for the search backend. The API key path is
// deterministic and makes zero network calls.
func (r *Resolver) Resolve(ctx context.Context) (Credential, error) {
	if r.apiKey != "" {
		return Credential{APIKey: r.apiKey}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached.Token != "" && time.Until(r.cached.ExpiresOn) > expirySkew {
		return r.cached, nil
	}

	if r.provider == nil {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return Credential{}, fmt.Errorf("no ambient identity available: %w", err)
		}
		r.provider = cred
	}

	tok, err := r.provider.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{SearchScope},
	})
	if err != nil {
		return Credential{}, fmt.Errorf("failed to acquire search token: %w", err)
	}

	r.cached = Credential{Token: tok.Token, ExpiresOn: tok.ExpiresOn}
	return r.cached, nil
}
