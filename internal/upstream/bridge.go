package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	pkgerrors "github.com/zanclus/nexus-auth-proxy/pkg/errors"
)

// userLookupPath is the upstream's per-user endpoint, relative to the base
// URL. The same endpoint authenticates the caller via Basic auth.
const userLookupPath = "/nexus/service/local/users/%s"

// VerifyResult is the reply for a verify-credentials request.
type VerifyResult struct {
	Status   int      `json:"status"`
	Response string   `json:"response"`
	UserInfo *Profile `json:"userinfo"`
}

// Bridge exchanges a username/password pair for the upstream's user profile.
// It never retries; the upstream's answer is final.
type Bridge struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewBridge creates a credential bridge against baseURL (scheme://host:port).
// The client should be keep-alive capable and is shared with the proxy path.
func NewBridge(client *http.Client, baseURL string, logger *slog.Logger) *Bridge {
	if client == nil {
		client = http.DefaultClient
	}
	return &Bridge{client: client, baseURL: baseURL, logger: logger}
}

// VerifyBasicAuth issues a Basic-authenticated GET against the upstream's
// user-lookup endpoint and parses the JSON profile. Missing credentials are
// rejected before any network call.
func (b *Bridge) VerifyBasicAuth(ctx context.Context, username, password string) (*VerifyResult, error) {
	if username == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "username and/or password values are null")
	}

	lookupURL := b.baseURL + fmt.Sprintf(userLookupPath, url.PathEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, "build upstream request", err)
	}
	req.SetBasicAuth(username, password)
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, "upstream unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b.logger.WarnContext(ctx, "upstream rejected credentials",
			"username", username,
			"status", resp.StatusCode,
		)
		return nil, pkgerrors.Newf(pkgerrors.CodeUpstream,
			"upstream returned %d: %s", resp.StatusCode, resp.Status)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, "malformed upstream profile", err)
	}

	return &VerifyResult{
		Status:   resp.StatusCode,
		Response: resp.Status,
		UserInfo: &profile,
	}, nil
}
