package checker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/namelens/listlens/internal/core"
)

const (
	hubspotSource         = "hubspot"
	defaultHubSpotBaseURL = "https://api.hubapi.com"
	defaultRequestTimeout = 30 * time.Second
)

// HubSpotListChecker looks up a list's filter definition and reports which
// tracked properties it references.
type HubSpotListChecker struct {
	Client      *http.Client
	Limiter     Limiter
	Properties  core.PropertySet
	BaseURL     string
	Token       string
	Timeout     time.Duration
	MaxDepth    int
	RunID       string
	ToolVersion string
	Clock       func() time.Time
}

type listResponse struct {
	List *struct {
		FilterBranch *FilterBranch `json:"filterBranch"`
	} `json:"list"`
}

// Check performs one lookup. It never returns nil and never retries; every
// failure is captured as an error result.
func (c *HubSpotListChecker) Check(ctx context.Context, target core.ListTarget) *core.CheckResult {
	if ctx == nil {
		ctx = context.Background()
	}

	requestedAt := c.now()
	endpoint := c.listURL(target.ListID)

	if c == nil {
		return c.errorResult(target, &RemoteError{Kind: ErrorKindTransport, Message: "list checker is not configured"}, requestedAt, endpoint)
	}

	if strings.TrimSpace(target.ListID) == "" {
		return c.errorResult(target, &RemoteError{Kind: ErrorKindInput, Message: "list id is required"}, requestedAt, endpoint)
	}

	if c.Limiter != nil {
		if err := c.Limiter.Acquire(ctx); err != nil {
			return c.errorResult(target, &RemoteError{Kind: classifyTransportError(err), Message: err.Error(), Err: err}, requestedAt, endpoint)
		}
	}

	found, statusCode, err := c.fetchProperties(ctx, endpoint)
	if err != nil {
		var remote *RemoteError
		if !errors.As(err, &remote) {
			remote = &RemoteError{Kind: ErrorKindTransport, StatusCode: statusCode, Message: err.Error(), Err: err}
		}
		return c.errorResult(target, remote, requestedAt, endpoint)
	}

	matched := c.Properties.Intersect(found)
	status := core.StatusNoMatch
	if len(matched) > 0 {
		status = core.StatusFound
	}

	return &core.CheckResult{
		Target:     target,
		Status:     status,
		Matched:    matched,
		StatusCode: statusCode,
		Provenance: c.provenance(requestedAt, endpoint),
	}
}

func (c *HubSpotListChecker) fetchProperties(ctx context.Context, endpoint string) (map[string]struct{}, int, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, &RemoteError{Kind: ErrorKindTransport, Message: err.Error(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, &RemoteError{Kind: classifyTransportError(err), Message: err.Error(), Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if !isSuccess(resp.StatusCode) {
		message := "API error: " + readErrorBody(resp)
		if wait, raw := retryAfterHeader(resp, c.now()); raw != "" {
			if wait > 0 {
				message += fmt.Sprintf(" (retry after %s)", wait.Round(time.Second))
			} else {
				message += fmt.Sprintf(" (retry after %s)", raw)
			}
		}
		return nil, resp.StatusCode, &RemoteError{Kind: ErrorKindStatus, StatusCode: resp.StatusCode, Message: message}
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, resp.StatusCode, &RemoteError{Kind: ErrorKindParse, StatusCode: resp.StatusCode, Message: "parse error: " + err.Error(), Err: err}
	}
	if payload.List == nil {
		return nil, resp.StatusCode, &RemoteError{Kind: ErrorKindParse, StatusCode: resp.StatusCode, Message: "parse error: response has no list object"}
	}

	found, err := CollectProperties(payload.List.FilterBranch, c.MaxDepth)
	if err != nil {
		return nil, resp.StatusCode, &RemoteError{Kind: ErrorKindParse, StatusCode: resp.StatusCode, Message: "parse error: " + err.Error(), Err: err}
	}

	return found, resp.StatusCode, nil
}

func (c *HubSpotListChecker) listURL(listID string) string {
	base := defaultHubSpotBaseURL
	if c != nil && strings.TrimSpace(c.BaseURL) != "" {
		base = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	}
	query := url.Values{}
	query.Set("includeFilters", "true")
	return fmt.Sprintf("%s/crm/v3/lists/%s?%s", base, url.PathEscape(strings.TrimSpace(listID)), query.Encode())
}

func (c *HubSpotListChecker) errorResult(target core.ListTarget, remote *RemoteError, requestedAt time.Time, server string) *core.CheckResult {
	return &core.CheckResult{
		Target:     target,
		Status:     core.StatusError,
		StatusCode: remote.StatusCode,
		Message:    remote.Message,
		ErrorKind:  string(remote.Kind),
		Provenance: c.provenance(requestedAt, server),
	}
}

func (c *HubSpotListChecker) provenance(requestedAt time.Time, server string) core.Provenance {
	provenance := core.Provenance{
		CheckID:     uuid.New().String(),
		RequestedAt: requestedAt,
		ResolvedAt:  c.now(),
		Source:      hubspotSource,
		Server:      server,
	}
	if c != nil {
		provenance.RunID = c.RunID
		provenance.ToolVersion = c.ToolVersion
	}
	return provenance
}

func (c *HubSpotListChecker) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
