package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dshills/codesync/pkg/types"
)

// API endpoint paths.
const (
	upsertPath   = "/api/codebase-indexing/upsert"
	searchPath   = "/api/codebase-indexing/search"
	filesPath    = "/api/codebase-indexing/files"
	branchPath   = "/api/codebase-indexing/branch"
	projectPath  = "/api/codebase-indexing/project"
	manifestPath = "/api/codebase-indexing/manifest"
)

// MaxBatchSize is the maximum chunks accepted per upsert call.
const MaxBatchSize = 60

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is kept for messages.
const maxErrorBody = 4096

// BaseURLFunc derives the service base URL from a bearer token. The host
// supplies its own derivation for testing.
type BaseURLFunc func(token string) string

// DefaultBaseURL resolves the service region from the token prefix.
// Tokens are issued as "<region>_<secret>"; tokens without a region
// prefix route to the default region.
func DefaultBaseURL(token string) string {
	region := "us"
	if i := strings.IndexByte(token, '_'); i > 0 {
		region = token[:i]
	}
	return fmt.Sprintf("https://%s.api.codesync.dev", region)
}

// Options configures a Client.
type Options struct {
	Token          string
	OrganizationID string
	ProjectID      string

	// DeriveBaseURL overrides token-based URL derivation. Nil uses
	// DefaultBaseURL.
	DeriveBaseURL BaseURLFunc

	Timeout time.Duration

	// RequestsPerSecond smooths request bursts. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int

	Retry  RetryConfig
	Logger *zap.Logger
}

// Client is a typed HTTP client for the remote indexing service. It is
// stateless and safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	orgID   string
	projID  string

	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
	logger     *zap.Logger
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	derive := opts.DeriveBaseURL
	if derive == nil {
		derive = DefaultBaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(derive(opts.Token), "/"),
		token:      opts.Token,
		orgID:      opts.OrganizationID,
		projID:     opts.ProjectID,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		retry:      retry,
		logger:     logger.Named("remote"),
	}
}

// Upsert uploads one batch of chunks. Batches are capped at MaxBatchSize;
// transient failures are retried with exponential backoff.
func (c *Client) Upsert(ctx context.Context, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) > MaxBatchSize {
		return fmt.Errorf("upsert batch of %d exceeds limit %d", len(chunks), MaxBatchSize)
	}

	body := map[string]any{"chunks": chunks}

	return retryWithBackoff(ctx, c.retry, func() error {
		err := c.do(ctx, http.MethodPut, upsertPath, body, nil)
		if err != nil && types.IsRetryable(err) {
			c.logger.Warn("upsert attempt failed, will retry",
				zap.Int("chunks", len(chunks)), zap.Error(err))
		}
		return err
	})
}

// SearchRequest is the body of a search call. OrganizationID and
// ProjectID are filled in by the client.
type SearchRequest struct {
	Query          string   `json:"query"`
	OrganizationID string   `json:"organizationId"`
	ProjectID      string   `json:"projectId"`
	PreferBranch   string   `json:"preferBranch"`
	FallbackBranch string   `json:"fallbackBranch"`
	ExcludeFiles   []string `json:"excludeFiles"`
	Path           string   `json:"path,omitempty"`
}

// Search runs a semantic query against the remote index.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]types.SearchResult, error) {
	req.OrganizationID = c.orgID
	req.ProjectID = c.projID
	if req.ExcludeFiles == nil {
		req.ExcludeFiles = []string{}
	}

	var results []types.SearchResult
	if err := c.do(ctx, http.MethodPost, searchPath, req, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteFiles removes all chunks for the given files on branch.
func (c *Client) DeleteFiles(ctx context.Context, branch string, filePaths []string) error {
	if len(filePaths) == 0 {
		return nil
	}
	body := map[string]any{
		"organizationId": c.orgID,
		"projectId":      c.projID,
		"gitBranch":      branch,
		"filePaths":      filePaths,
	}
	return c.do(ctx, http.MethodDelete, filesPath, body, nil)
}

// DeleteBranch removes the entire index for branch.
func (c *Client) DeleteBranch(ctx context.Context, branch string) error {
	body := map[string]any{
		"organizationId": c.orgID,
		"projectId":      c.projID,
		"gitBranch":      branch,
	}
	return c.do(ctx, http.MethodDelete, branchPath, body, nil)
}

// DeleteProject removes the project's index across all branches.
func (c *Client) DeleteProject(ctx context.Context) error {
	body := map[string]any{
		"organizationId": c.orgID,
		"projectId":      c.projID,
	}
	return c.do(ctx, http.MethodDelete, projectPath, body, nil)
}

// Manifest fetches the server's file manifest for branch. A 404 means
// the branch has no chunks yet and returns (nil, nil).
func (c *Client) Manifest(ctx context.Context, branch string) (*types.Manifest, error) {
	url := fmt.Sprintf("%s?organizationId=%s&projectId=%s&gitBranch=%s",
		manifestPath, c.orgID, c.projID, branch)

	var manifest types.Manifest
	err := c.do(ctx, http.MethodGet, url, nil, &manifest)
	if err != nil {
		var re *types.RemoteError
		if errors.As(err, &re) && re.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &manifest, nil
}

// do executes one request against path and decodes the response into out
// when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &types.TransportError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &types.RemoteError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
