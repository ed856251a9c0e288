// Package github provides the source-control collaborator client: commit
// history for code-ownership analysis and changed-file listings at ingestion
// time. Authentication is either a personal access token or a GitHub App
// installation token.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

const (
	apiBase        = "https://api.github.com"
	defaultTimeout = 30 * time.Second

	// MaxCommitHistory bounds how many commits the ownership analyzer
	// inspects per file path.
	MaxCommitHistory = 50
)

// Sentinel errors callers can test with errors.Is. Access-denied and
// not-found are distinguishable so the ownership analyzer can decide to skip
// a path rather than fail the whole request.
var (
	ErrAccessDenied = errors.New("github: access denied")
	ErrNotFound     = errors.New("github: not found")
	ErrRateLimited  = errors.New("github: rate limited")
)

// Client handles GitHub API interactions.
type Client struct {
	httpClient  *http.Client
	tokenExpiry time.Time
	token       string
	appID       string
	privateKey  []byte
	tokenMu     sync.RWMutex
	isAppAuth   bool
}

// Config holds configuration for creating a new client.
type Config struct {
	Token       string // personal access token (non-app auth)
	AppID       string
	AppKeyPath  string // path to the App's PEM private key
	HTTPTimeout time.Duration
	UseAppAuth  bool
}

// New creates a GitHub client from either a personal token or App
// credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
	}

	if cfg.UseAppAuth {
		if err := c.initAppAuth(ctx, cfg.AppID, cfg.AppKeyPath); err != nil {
			return nil, fmt.Errorf("initialize app auth: %w", err)
		}
		return c, nil
	}

	if cfg.Token == "" {
		return nil, errors.New("github token is required when not using app auth")
	}
	c.token = cfg.Token
	return c, nil
}

// ListCommits returns up to limit commits that touched the given path in the
// repository, newest first. repo is the full "owner/name" form.
func (c *Client) ListCommits(ctx context.Context, repo, path string, limit int) ([]types.Commit, error) {
	if limit <= 0 || limit > MaxCommitHistory {
		limit = MaxCommitHistory
	}
	endpoint := fmt.Sprintf("%s/repos/%s/commits?path=%s&per_page=%d",
		apiBase, repo, url.QueryEscape(path), limit)

	var raw []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Author struct {
				Date time.Time `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		Author *struct {
			Login string `json:"login"`
		} `json:"author"`
	}
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("list commits for %s in %s: %w", path, repo, err)
	}

	commits := make([]types.Commit, 0, len(raw))
	for _, rc := range raw {
		commit := types.Commit{
			SHA:        rc.SHA,
			AuthorDate: rc.Commit.Author.Date,
		}
		if rc.Author != nil {
			commit.AuthorHandle = rc.Author.Login
		}
		if commit.AuthorHandle == "" {
			// Commits without a linked account cannot count toward
			// ownership.
			continue
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

// ListPullRequestFiles returns the changed files of a pull request.
func (c *Client) ListPullRequestFiles(ctx context.Context, repo string, number int) ([]types.FileChange, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/pulls/%d/files?per_page=100", apiBase, repo, number)

	var raw []struct {
		Filename  string `json:"filename"`
		Status    string `json:"status"`
		Additions int    `json:"additions"`
		Deletions int    `json:"deletions"`
		Changes   int    `json:"changes"`
	}
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("list files for %s#%d: %w", repo, number, err)
	}

	files := make([]types.FileChange, 0, len(raw))
	for _, rf := range raw {
		files = append(files, types.FileChange{
			Path:      rf.Filename,
			Status:    rf.Status,
			Additions: rf.Additions,
			Deletions: rf.Deletions,
			Changes:   rf.Changes,
		})
	}
	return files, nil
}

// getJSON performs an authenticated GET with retry and decodes the response
// body into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	return retryWithBackoff(ctx, "GET "+endpoint, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		token, err := c.authToken(ctx)
		if err != nil {
			return fmt.Errorf("resolve auth token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/vnd.github+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer drainAndCloseBody(resp.Body)

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
			return ErrRateLimited
		case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
			return ErrAccessDenied
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error: status %d", resp.StatusCode)
		default:
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// drainAndCloseBody drains and closes an HTTP response body to keep the
// underlying connection reusable.
func drainAndCloseBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		slog.Warn("Failed to drain response body", "error", err)
	}
	if err := body.Close(); err != nil {
		slog.Warn("Failed to close response body", "error", err)
	}
}
