package pid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/oceanobs/seaportal/pkg/config"
)

// Registry talks to the external DOI registration service. Every call is
// bounded by the configured timeout.
type Registry struct {
	baseURL string
	prefix  string
	user    string
	pass    string
	client  *http.Client
}

// NewRegistry creates a registry client. An empty baseURL means DOIs are
// minted locally only (draft mode).
func NewRegistry(baseURL, prefix, user, pass string) *Registry {
	return &Registry{
		baseURL: baseURL,
		prefix:  prefix,
		user:    user,
		pass:    pass,
		client:  &http.Client{Timeout: config.RegistryTimeout},
	}
}

// Prefix returns the DOI prefix registrations are minted under.
func (r *Registry) Prefix() string {
	return r.prefix
}

// Configured reports whether an external registry is reachable at all.
func (r *Registry) Configured() bool {
	return r.baseURL != ""
}

type registrationRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			Prefix string  `json:"prefix"`
			Event  string  `json:"event"`
			URL    string  `json:"url"`
			Payload
		} `json:"attributes"`
	} `json:"data"`
}

type registrationResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Register submits the payload and returns the DOI the registry assigned.
func (r *Registry) Register(ctx context.Context, p Payload) (string, error) {
	var req registrationRequest
	req.Data.Type = "dois"
	req.Data.Attributes.Prefix = r.prefix
	req.Data.Attributes.Event = "publish"
	req.Data.Attributes.URL = p.URL
	req.Data.Attributes.Payload = p

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode registration: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/dois", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build registration request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/vnd.api+json")
	if r.user != "" {
		httpReq.SetBasicAuth(r.user, r.pass)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("DOI registry unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("DOI registry rejected registration: %s: %s", resp.Status, msg)
	}

	var out registrationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode registry response: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("DOI registry returned no identifier")
	}
	return out.Data.ID, nil
}
