// Package coingecko provides a client for the CoinGecko API
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"coinchat/internal/common"
	"coinchat/internal/interfaces"
	"coinchat/internal/models"
)

const (
	DefaultBaseURL   = "https://api.coingecko.com/api/v3"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithAPIKey sets the optional demo API key
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new CoinGecko client. The public API works without a
// key; a demo key raises the rate limits.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CoinGecko API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("CoinGecko API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetSimplePrice retrieves the spot price of a coin in the given fiat
// currency. Unknown ids come back as an empty object, reported as found=false.
func (c *Client) GetSimplePrice(ctx context.Context, id, currency string) (float64, bool, error) {
	id = strings.ToLower(id)
	currency = strings.ToLower(currency)

	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", currency)

	var resp map[string]map[string]float64
	if err := c.get(ctx, "/simple/price", params, &resp); err != nil {
		return 0, false, err
	}

	quotes, ok := resp[id]
	if !ok {
		return 0, false, nil
	}
	price, ok := quotes[currency]
	if !ok {
		return 0, false, nil
	}

	return price, true, nil
}

// trendingResponse represents the /search/trending payload
type trendingResponse struct {
	Coins []struct {
		Item struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			Symbol        string `json:"symbol"`
			MarketCapRank int    `json:"market_cap_rank"`
		} `json:"item"`
	} `json:"coins"`
}

// GetTrending retrieves the currently trending coins, preserving service order.
func (c *Client) GetTrending(ctx context.Context) ([]models.TrendingCoin, error) {
	var resp trendingResponse
	if err := c.get(ctx, "/search/trending", nil, &resp); err != nil {
		return nil, err
	}

	coins := make([]models.TrendingCoin, len(resp.Coins))
	for i, entry := range resp.Coins {
		coins[i] = models.TrendingCoin{
			ID:            entry.Item.ID,
			Name:          entry.Item.Name,
			Symbol:        entry.Item.Symbol,
			MarketCapRank: entry.Item.MarketCapRank,
		}
	}

	return coins, nil
}

// coinResponse represents the subset of /coins/{id} the stats reply needs
type coinResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description struct {
		EN string `json:"en"`
	} `json:"description"`
	MarketData struct {
		MarketCap struct {
			USD float64 `json:"usd"`
		} `json:"market_cap"`
		PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	} `json:"market_data"`
}

// GetCoinStats retrieves full metadata for a coin. Unknown ids surface as an
// *APIError with status 404.
func (c *Client) GetCoinStats(ctx context.Context, id string) (*models.CoinStats, error) {
	id = strings.ToLower(id)

	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")

	var resp coinResponse
	if err := c.get(ctx, "/coins/"+url.PathEscape(id), params, &resp); err != nil {
		return nil, err
	}

	return &models.CoinStats{
		ID:           resp.ID,
		Name:         resp.Name,
		Symbol:       resp.Symbol,
		MarketCapUSD: resp.MarketData.MarketCap.USD,
		Change24h:    resp.MarketData.PriceChangePercentage24h,
		Description:  resp.Description.EN,
	}, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
