// internal/bags/client.go
package bags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/upstream"
)

const (
	DefaultBaseURL = "https://public-api-v2.bags.fm/api/v1"
	// FallbackBaseURL is the legacy host still answering some launch endpoints.
	FallbackBaseURL = "https://api.bags.fm/api/v1"

	LamportsPerSOL = 1_000_000_000

	// RateLimit is the per-minute budget we allow ourselves against the Bags API.
	RateLimit = 600
)

// ErrUnsuccessful is returned when the API answers with success=false.
var ErrUnsuccessful = errors.New("bags api reported failure")

// Client talks to the Bags public API.
type Client struct {
	baseURL string
	client  *upstream.Client
	logger  *zap.Logger
}

// NewClient creates a Bags API client. The upstream client must carry the x-api-key header.
func NewClient(baseURL string, client *upstream.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.Named("bags"),
	}
}

// BaseURL returns the API root used by the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upstream exposes the underlying HTTP client for endpoint probing.
func (c *Client) Upstream() *upstream.Client {
	return c.client
}

type envelope struct {
	Success  *bool           `json:"success"`
	Response json.RawMessage `json:"response"`
	Error    string          `json:"error"`
}

// LifetimeFees returns the lifetime protocol fees of mint in lamports.
func (c *Client) LifetimeFees(ctx context.Context, mint string) (uint64, error) {
	u := fmt.Sprintf("%s/token-launch/lifetime-fees?tokenMint=%s", c.baseURL, url.QueryEscape(mint))

	var env envelope
	if err := c.client.GetJSON(ctx, u, &env); err != nil {
		return 0, fmt.Errorf("lifetime fees: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return 0, fmt.Errorf("%w: %s", ErrUnsuccessful, env.Error)
	}

	lamports, err := parseLamports(env.Response)
	if err != nil {
		return 0, fmt.Errorf("lifetime fees: %w", err)
	}
	return lamports, nil
}

// parseLamports accepts the amount as a JSON string or number.
func parseLamports(raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: empty response", upstream.ErrMalformed)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: bad lamports %q", upstream.ErrMalformed, s)
		}
		return uint64(v), nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || f < 0 {
		return 0, fmt.Errorf("%w: bad lamports %s", upstream.ErrMalformed, string(raw))
	}
	return uint64(f), nil
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}

type tokenEntry struct {
	Mint    string `json:"mint"`
	Address string `json:"address"`
}

type tokenListResponse struct {
	Tokens []tokenEntry `json:"tokens"`
	Data   []tokenEntry `json:"data"`
}

// TokenMints lists the mints known to the Bags analytics API.
func (c *Client) TokenMints(ctx context.Context) ([]string, error) {
	u := fmt.Sprintf("%s/analytics/tokens", c.baseURL)

	var resp tokenListResponse
	if err := c.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("token list: %w", err)
	}

	entries := resp.Tokens
	if len(entries) == 0 {
		entries = resp.Data
	}

	mints := make([]string, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.Mint != "":
			mints = append(mints, e.Mint)
		case e.Address != "":
			mints = append(mints, e.Address)
		}
	}

	c.logger.Debug("Token list fetched", zap.Int("count", len(mints)))
	return mints, nil
}

// Creator describes the launcher of a token.
type Creator struct {
	Username string `json:"username"`
	Wallet   string `json:"wallet"`
	Avatar   string `json:"avatar"`
	Twitter  string `json:"twitter"`
	Bio      string `json:"bio"`
}

// TokenMetadata is the analytics view of a single token.
type TokenMetadata struct {
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Banner      string   `json:"banner"`
	Website     string   `json:"website"`
	Verified    bool     `json:"verified"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	Creator     *Creator `json:"creator"`
}

// TokenMetadata fetches analytics metadata for mint.
func (c *Client) TokenMetadata(ctx context.Context, mint string) (*TokenMetadata, error) {
	u := fmt.Sprintf("%s/analytics/tokens/%s", c.baseURL, url.PathEscape(mint))

	var resp struct {
		Data *TokenMetadata `json:"data"`
	}
	if err := c.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("token metadata: %w", err)
	}
	if resp.Data == nil {
		return nil, upstream.ErrNoData
	}
	return resp.Data, nil
}

// Social is a link attached to a token.
type Social struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Socials fetches the social links of mint.
func (c *Client) Socials(ctx context.Context, mint string) ([]Social, error) {
	u := fmt.Sprintf("%s/token/socials/%s", c.baseURL, url.PathEscape(mint))

	var resp struct {
		Socials []Social `json:"socials"`
		Links   []Social `json:"links"`
	}
	if err := c.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("token socials: %w", err)
	}
	if len(resp.Socials) > 0 {
		return resp.Socials, nil
	}
	return resp.Links, nil
}
