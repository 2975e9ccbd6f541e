package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/viewstodownloads/tiktok-connect/internal/config"
	"github.com/viewstodownloads/tiktok-connect/internal/metrics"
)

const (
	tokenPath       = "/v2/oauth/token/"
	revokePath      = "/v2/oauth/revoke/"
	userInfoPath    = "/v2/user/info/"
	publishInitPath = "/v2/post/publish/video/init/"
	statusFetchPath = "/v2/post/publish/status/fetch/"
	creatorInfoPath = "/v2/post/publish/creator_info/query/"

	// UserInfoFields is the fixed field set requested after the token exchange.
	UserInfoFields = "open_id,union_id,avatar_url,avatar_url_100,display_name"

	maxErrorBody = 512
)

// Client talks to the TikTok authorization server and open API. It holds no
// per-user state and is safe for concurrent use.
type Client struct {
	clientKey    string
	clientSecret string
	redirectURI  string
	scopes       []string
	authURL      string
	baseURL      string
	httpClient   *http.Client
	validate     *validator.Validate
}

// NewClient builds a client from the provider config. A nil httpClient gets a
// 30 second timeout.
func NewClient(cfg config.TikTokConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		clientKey:    cfg.ClientKey,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		scopes:       cfg.Scopes,
		authURL:      cfg.AuthURL,
		baseURL:      strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient:   httpClient,
		validate:     validator.New(),
	}
}

// AuthorizeURL builds the consent page URL for a PKCE authorization request.
func (c *Client) AuthorizeURL(state, codeChallenge string) (string, error) {
	if c.clientKey == "" || c.redirectURI == "" {
		return "", fmt.Errorf("tiktok client key and redirect uri must be configured")
	}
	u, err := url.Parse(c.authURL)
	if err != nil {
		return "", fmt.Errorf("parse auth url: %w", err)
	}

	params := url.Values{
		"client_key":            {c.clientKey},
		"scope":                 {strings.Join(c.scopes, ",")},
		"response_type":         {"code"},
		"redirect_uri":          {c.redirectURI},
		"state":                 {state},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"S256"},
		"prompt":                {"consent"},
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// postForm calls a form-encoded OAuth endpoint. These endpoints report errors
// as {"error": ..., "error_description": ...} rather than the API envelope.
func (c *Client) postForm(ctx context.Context, endpoint, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")

	body, status, err := c.do(endpoint, req)
	if err != nil {
		return err
	}

	var envelope struct {
		Error       *oauthError `json:"error"`
		Description string      `json:"error_description"`
		LogID       string      `json:"log_id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil && status < 300 {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	if envelope.Error != nil && envelope.Error.Code != "" && envelope.Error.Code != "ok" {
		msg := envelope.Error.Message
		if msg == "" {
			msg = envelope.Description
		}
		return c.fail(endpoint, newProviderError(envelope.Error.Code, msg, envelope.LogID, status))
	}
	if status >= 300 {
		return c.fail(endpoint, newProviderError(fmt.Sprintf("http_%d", status), snippet(body), envelope.LogID, status))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s response: %w", endpoint, err)
		}
		if err := c.validate.Struct(out); err != nil {
			return c.fail(endpoint, fmt.Errorf("%s: %w: %v", endpoint, ErrMalformedResponse, err))
		}
	}
	c.succeed(endpoint)
	return nil
}

// doAPI calls an open API endpoint that answers with the
// {"data": ..., "error": {"code", "message", "log_id"}} envelope. data is
// decoded into out and validated.
func (c *Client) doAPI(ctx context.Context, endpoint, method, rawURL, accessToken string, payload, out any) error {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}

	body, status, err := c.do(endpoint, req)
	if err != nil {
		return err
	}

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error *apiError       `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		if status >= 300 {
			return c.fail(endpoint, newProviderError(fmt.Sprintf("http_%d", status), snippet(body), "", status))
		}
		return c.fail(endpoint, fmt.Errorf("decode %s response: %w: %v", endpoint, ErrMalformedResponse, err))
	}

	if e := envelope.Error; e != nil && c.validate.Struct(e) == nil && e.Code != "ok" {
		return c.fail(endpoint, newProviderError(e.Code, e.Message, e.LogID, status))
	}
	if status >= 300 {
		return c.fail(endpoint, newProviderError(fmt.Sprintf("http_%d", status), snippet(body), "", status))
	}

	if out != nil {
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			return c.fail(endpoint, fmt.Errorf("%s: %w: missing data", endpoint, ErrMalformedResponse))
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return c.fail(endpoint, fmt.Errorf("%s: %w: %v", endpoint, ErrMalformedResponse, err))
		}
		if err := c.validate.Struct(out); err != nil {
			return c.fail(endpoint, fmt.Errorf("%s: %w: %v", endpoint, ErrMalformedResponse, err))
		}
	}
	c.succeed(endpoint)
	return nil
}

func (c *Client) do(endpoint string, req *http.Request) ([]byte, int, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ProviderLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, 0, fmt.Errorf("tiktok %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, 0, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) fail(endpoint string, err error) error {
	outcome := "malformed"
	if pe, ok := AsProviderError(err); ok {
		outcome = pe.Kind.String()
	}
	metrics.ProviderRequests.WithLabelValues(endpoint, outcome).Inc()
	return err
}

func (c *Client) succeed(endpoint string) {
	metrics.ProviderRequests.WithLabelValues(endpoint, "ok").Inc()
}

func snippet(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}
