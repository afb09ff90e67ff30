package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"xpurge/internal/config"
	"xpurge/internal/logging"
	"xpurge/internal/metrics"
	"xpurge/internal/model"
)

// XClient defines the calls the deletion flow makes against the X web API.
type XClient interface {
	ResolveAccount(ctx context.Context, creds model.Credentials) (model.Account, error)
	ListPage(ctx context.Context, creds model.Credentials, acct model.Account, cursor string) (model.PageResult, error)
	DeleteItem(ctx context.Context, creds model.Credentials, id string) error
}

// HTTPClient talks to the GraphQL endpoints of the X web client using the
// user's cookie session.
type HTTPClient struct {
	baseURL     string
	webBearer   string
	userAgent   string
	queries     queryIDs
	pageSize    int
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	loc         *time.Location
}

type queryIDs struct {
	viewer     string
	userTweets string
	delete     string
}

func NewHTTPClient(cfg config.RemoteConfig) *HTTPClient {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL:   cfg.BaseURL,
		webBearer: cfg.WebBearer,
		userAgent: cfg.UserAgent,
		queries: queryIDs{
			viewer:     cfg.ViewerQueryID,
			userTweets: cfg.UserTweetsQueryID,
			delete:     cfg.DeleteQueryID,
		},
		pageSize:    clamp(cfg.PageSize, 1, 100),
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     newLimiter(cfg.RPS, cfg.Burst),
		maxAttempts: maxAttempts,
		baseBackoff: time.Duration(cfg.BaseBackoffMS) * time.Millisecond,
		loc:         time.Local,
	}
}

// SetLocation changes the zone item dates are rendered in.
func (c *HTTPClient) SetLocation(loc *time.Location) {
	if loc != nil {
		c.loc = loc
	}
}

func (c *HTTPClient) auth(req *http.Request, creds model.Credentials) {
	if c.webBearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.webBearer)
	}
	req.Header.Set("Cookie", fmt.Sprintf("auth_token=%s; ct0=%s", creds.AuthToken, creds.CSRFToken))
	req.Header.Set("X-Csrf-Token", creds.CSRFToken)
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("X-Twitter-Active-User", "yes")
	req.Header.Set("X-Twitter-Auth-Type", "OAuth2Session")
	req.Header.Set("X-Twitter-Client-Language", "en")
}

func (c *HTTPClient) graphqlURL(queryID, operation string, variables any, features map[string]bool) (string, error) {
	vb, err := json.Marshal(variables)
	if err != nil {
		return "", err
	}
	fb, err := json.Marshal(features)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("variables", string(vb))
	q.Set("features", string(fb))
	return fmt.Sprintf("%s/%s/%s?%s", c.baseURL, queryID, operation, q.Encode()), nil
}

// ResolveAccount returns the identity behind the session.
func (c *HTTPClient) ResolveAccount(ctx context.Context, creds model.Credentials) (model.Account, error) {
	var out model.Account
	u, err := c.graphqlURL(c.queries.viewer, "Viewer", map[string]any{"withCommunitiesMemberships": false}, viewerFeatures)
	if err != nil {
		return out, err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req, creds)
	if err := c.limiter.Wait(ctx); err != nil {
		return out, &FetchError{Err: err}
	}
	resp, err := c.doWithRetry(ctx, req, "Viewer")
	if err != nil {
		return out, &FetchError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		logging.Error("viewer_api_error", map[string]any{"status": resp.StatusCode, "body": snippet(resp.Body)})
		return out, &AuthError{Status: resp.StatusCode}
	}
	var raw struct {
		Data struct {
			Viewer struct {
				UserResults struct {
					Result *struct {
						RestID string `json:"rest_id"`
						Legacy struct {
							ScreenName    string `json:"screen_name"`
							StatusesCount int    `json:"statuses_count"`
						} `json:"legacy"`
					} `json:"result"`
				} `json:"user_results"`
			} `json:"viewer"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return out, &AuthError{Reason: "could not get user info"}
	}
	res := raw.Data.Viewer.UserResults.Result
	if res == nil || res.RestID == "" {
		return out, &AuthError{Reason: "could not get user info"}
	}
	out = model.Account{
		ID:             res.RestID,
		ScreenName:     res.Legacy.ScreenName,
		TotalItemCount: res.Legacy.StatusesCount,
	}
	return out, nil
}

// ListPage fetches one page of the account's posts. TotalCount is taken from acct.
func (c *HTTPClient) ListPage(ctx context.Context, creds model.Credentials, acct model.Account, cursor string) (model.PageResult, error) {
	variables := map[string]any{
		"userId":                                 acct.ID,
		"count":                                  c.pageSize,
		"includePromotedContent":                 false,
		"withQuickPromoteEligibilityTweetFields": false,
		"withVoice":                              false,
		"withV2Timeline":                         true,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}
	u, err := c.graphqlURL(c.queries.userTweets, "UserTweets", variables, userTweetsFeatures)
	if err != nil {
		return model.PageResult{}, err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req, creds)
	if err := c.limiter.Wait(ctx); err != nil {
		return model.PageResult{}, &FetchError{Err: err}
	}
	resp, err := c.doWithRetry(ctx, req, "UserTweets")
	if err != nil {
		metrics.IncPage(false)
		return model.PageResult{}, &FetchError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.IncPage(false)
		logging.Error("tweets_api_error", map[string]any{"status": resp.StatusCode, "body": snippet(resp.Body)})
		return model.PageResult{}, &FetchError{Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncPage(false)
		return model.PageResult{}, &FetchError{Err: err}
	}
	page, err := parseTimeline(body, c.loc)
	if err != nil {
		metrics.IncPage(false)
		return model.PageResult{}, &FetchError{Status: resp.StatusCode, Err: err}
	}
	metrics.IncPage(true)
	page.TotalCount = acct.TotalItemCount
	return page, nil
}

// DeleteItem issues a single delete. It never retries: a failed id is reported
// once and the caller decides whether to resubmit it.
func (c *HTTPClient) DeleteItem(ctx context.Context, creds model.Credentials, id string) error {
	payload, _ := json.Marshal(map[string]any{
		"variables": map[string]any{"tweet_id": id, "dark_request": false},
		"queryId":   c.queries.delete,
	})
	u := fmt.Sprintf("%s/%s/DeleteTweet", c.baseURL, c.queries.delete)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	c.auth(req, creds)
	if err := c.limiter.Wait(ctx); err != nil {
		return &DeleteItemError{ID: id, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DeleteItemError{ID: id, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		logging.Error("delete_api_error", map[string]any{"tweet_id": id, "status": resp.StatusCode, "body": snippet(resp.Body)})
		return &DeleteItemError{ID: id, Status: resp.StatusCode}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(b)
}

// doWithRetry retries read calls on 429 and 5xx, honouring Retry-After.
func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request, endpoint string) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			ra := resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			wait := backoff
			if ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					wait = time.Duration(secs) * time.Second
				} else if t, err := http.ParseTime(ra); err == nil {
					if d := time.Until(t); d > 0 {
						wait = d
					}
				}
			}
			// jitter +/-20%
			jitter := time.Duration(float64(wait) * 0.2)
			if jitter > 0 {
				wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
			}
			metrics.IncAPIRetry(endpoint)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		metrics.IncAPIRetry(endpoint)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}
