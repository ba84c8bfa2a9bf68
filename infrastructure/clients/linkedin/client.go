package linkedin

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

	"publish-scheduler/domain/model"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const maxResponseBody = 1 << 20

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// AuthURL is the OAuth base, e.g. https://www.linkedin.com/oauth/v2
	AuthURL string
	// APIURL is the REST base, e.g. https://api.linkedin.com
	APIURL     string
	RateLimit  float64
	Burst      int
	HTTPClient *http.Client
}

// Client publishes member posts through the LinkedIn REST API. It keeps no
// per-user state; tokens are passed on every call.
type Client struct {
	oauth      *oauth2.Config
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	authURL := strings.TrimRight(cfg.AuthURL, "/")
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL + "/authorization",
				TokenURL:  authURL + "/accessToken",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

func (c *Client) Platform() model.Platform { return model.PlatformLinkedIn }

// AuthCodeURL is where the user grants consent.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Authenticate exchanges an authorization code for a member access token.
func (c *Client) Authenticate(ctx context.Context, code string) (*model.OAuthToken, error) {
	if code == "" {
		return nil, errors.New("linkedin authenticate: code required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail("authenticate", 0, "", err)
	}
	tok, err := c.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, c.fail("authenticate", re.Response.StatusCode, string(re.Body), err)
		}
		return nil, c.fail("authenticate", 0, "", err)
	}

	tokenType := tok.Type()
	out := &model.OAuthToken{
		Platform:     model.PlatformLinkedIn,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       strings.Join(c.oauth.Scopes, " "),
		TokenType:    &tokenType,
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		out.Scopes = scope
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		out.ExpiresAt = &exp
	}
	return out, nil
}

type userInfo struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ResolveSubject returns the member the token belongs to.
func (c *Client) ResolveSubject(ctx context.Context, accessToken string) (*model.PlatformProfile, error) {
	var info userInfo
	if _, err := c.do(ctx, "resolve subject", http.MethodGet, c.apiURL+"/v2/userinfo", accessToken, nil, &info); err != nil {
		return nil, err
	}
	if info.Sub == "" {
		return nil, c.fail("resolve subject", http.StatusOK, "", errors.New("userinfo response has no sub"))
	}
	return &model.PlatformProfile{SubjectID: info.Sub, DisplayName: info.Name, Email: info.Email}, nil
}

type shareCommentary struct {
	Text string `json:"text"`
}

type shareContent struct {
	ShareCommentary    shareCommentary `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
}

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

// Publish posts content publicly as the member identified by subjectID.
func (c *Client) Publish(ctx context.Context, accessToken, subjectID, content string) (*model.PublishResult, error) {
	if subjectID == "" {
		return nil, errors.New("linkedin publish: subject id required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("linkedin publish: content is empty")
	}
	post := ugcPost{
		Author:         "urn:li:person:" + subjectID,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]shareContent{
			"com.linkedin.ugc.ShareContent": {
				ShareCommentary:    shareCommentary{Text: content},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	var created struct {
		ID string `json:"id"`
	}
	header, err := c.do(ctx, "publish", http.MethodPost, c.apiURL+"/v2/ugcPosts", accessToken, post, &created)
	if err != nil {
		return nil, err
	}
	id := header.Get("X-RestLi-Id")
	if id == "" {
		id = created.ID
	}
	if id == "" {
		return nil, c.fail("publish", http.StatusCreated, "", errors.New("response carries no post id"))
	}
	return &model.PublishResult{ExternalID: id, URL: PostURL(id)}, nil
}

// PostURL is the public address of a post.
func PostURL(id string) string {
	return fmt.Sprintf("https://www.linkedin.com/feed/update/%s/", id)
}

// do sends an authenticated JSON request and decodes a 2xx body into out.
// Non-2xx responses become *model.AdapterError with the raw body.
func (c *Client) do(ctx context.Context, op, method, url, accessToken string, body, out interface{}) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(op, 0, "", err)
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("linkedin %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("linkedin %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(op, 0, "", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(op, resp.StatusCode, string(raw), nil)
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil && op != "publish" {
			return nil, c.fail(op, resp.StatusCode, string(raw), fmt.Errorf("decode response: %w", err))
		}
	}
	return resp.Header, nil
}

func (c *Client) fail(op string, status int, body string, err error) *model.AdapterError {
	return &model.AdapterError{Platform: model.PlatformLinkedIn, Op: op, StatusCode: status, Body: body, Err: err}
}
