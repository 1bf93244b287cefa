// Package marketdata implements the MarketDataSource port against the
// provider's HTTP quote and fundamentals API.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/domain/valueobject"
	"stocknotifier/internal/port/outbound"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxResponseBytes      = 4 << 20
)

// Config configures the provider client.
type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

// Client is an HTTP client for the market-data provider. All failures are
// returned as entity.MarketError values so they classify by kind: 404 maps
// to NotFound (possibly delisted), 429 to RateLimited, 5xx to Remote,
// timeouts and connection failures to NetworkTransient, and malformed
// payloads to Validation.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a provider client.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("marketdata: base URL cannot be empty")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("marketdata: invalid base URL: %w", err)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.RequestTimeout},
	}, nil
}

// Ensure Client satisfies the port.
var _ outbound.MarketDataSource = (*Client)(nil)

type quoteHistoryResponse struct {
	Symbol string `json:"symbol"`
	Quotes []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume int64   `json:"volume"`
	} `json:"quotes"`
}

type financialInfoResponse struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	Market           string    `json:"market"`
	Sector           string    `json:"sector"`
	Price            float64   `json:"price"`
	PER              float64   `json:"per"`
	PBR              float64   `json:"pbr"`
	DividendYield    float64   `json:"dividend_yield"`
	MarketCap        float64   `json:"market_cap"`
	AnnualRevenues   []float64 `json:"annual_revenues"`
	AnnualNetIncomes []float64 `json:"annual_net_incomes"`
	AnnualPERs       []float64 `json:"annual_pers"`
}

type dividendHistoryResponse struct {
	Symbol    string `json:"symbol"`
	Dividends []struct {
		ExDate string  `json:"ex_date"`
		Amount float64 `json:"amount"`
	} `json:"dividends"`
}

// GetFinancialInfo retrieves current fundamentals for a symbol.
func (c *Client) GetFinancialInfo(ctx context.Context, symbol string) (*entity.FinancialInfo, error) {
	if symbol == "" {
		return nil, entity.NewMarketError(valueobject.ErrorKindValidation, symbol, "symbol cannot be empty", nil)
	}

	var payload financialInfoResponse
	if err := c.get(ctx, symbol, "/v1/fundamentals/"+url.PathEscape(symbol), nil, &payload); err != nil {
		return nil, err
	}
	if payload.Symbol == "" || payload.Price < 0 {
		return nil, entity.NewMarketError(valueobject.ErrorKindValidation, symbol,
			"malformed fundamentals payload", nil)
	}

	return &entity.FinancialInfo{
		Symbol:           payload.Symbol,
		Name:             payload.Name,
		Market:           payload.Market,
		Sector:           payload.Sector,
		Price:            payload.Price,
		PER:              payload.PER,
		PBR:              payload.PBR,
		DividendYield:    payload.DividendYield,
		MarketCap:        payload.MarketCap,
		AnnualRevenues:   payload.AnnualRevenues,
		AnnualNetIncomes: payload.AnnualNetIncomes,
		AnnualPERs:       payload.AnnualPERs,
		RetrievedAt:      time.Now(),
	}, nil
}

// GetQuoteHistory retrieves daily quotes for a symbol in [from, to].
func (c *Client) GetQuoteHistory(ctx context.Context, symbol string, from, to time.Time) ([]entity.PricePoint, error) {
	if symbol == "" {
		return nil, entity.NewMarketError(valueobject.ErrorKindValidation, symbol, "symbol cannot be empty", nil)
	}

	query := url.Values{}
	query.Set("from", from.Format("2006-01-02"))
	query.Set("to", to.Format("2006-01-02"))

	var payload quoteHistoryResponse
	if err := c.get(ctx, symbol, "/v1/quotes/"+url.PathEscape(symbol), query, &payload); err != nil {
		return nil, err
	}

	points := make([]entity.PricePoint, 0, len(payload.Quotes))
	for _, q := range payload.Quotes {
		date, err := time.Parse("2006-01-02", q.Date)
		if err != nil {
			return nil, entity.NewMarketError(valueobject.ErrorKindValidation, symbol,
				fmt.Sprintf("malformed quote date %q", q.Date), err)
		}
		points = append(points, entity.PricePoint{
			Date:   date,
			Open:   q.Open,
			High:   q.High,
			Low:    q.Low,
			Close:  q.Close,
			Volume: q.Volume,
		})
	}
	return points, nil
}

// GetDividendHistory retrieves dividend payments for a symbol in [from, to].
func (c *Client) GetDividendHistory(ctx context.Context, symbol string, from, to time.Time) ([]entity.DividendPayment, error) {
	if symbol == "" {
		return nil, entity.NewMarketError(valueobject.ErrorKindValidation, symbol, "symbol cannot be empty", nil)
	}

	query := url.Values{}
	query.Set("from", from.Format("2006-01-02"))
	query.Set("to", to.Format("2006-01-02"))

	var payload dividendHistoryResponse
	if err := c.get(ctx, symbol, "/v1/dividends/"+url.PathEscape(symbol), query, &payload); err != nil {
		return nil, err
	}

	dividends := make([]entity.DividendPayment, 0, len(payload.Dividends))
	for _, d := range payload.Dividends {
		exDate, err := time.Parse("2006-01-02", d.ExDate)
		if err != nil {
			return nil, entity.NewMarketError(valueobject.ErrorKindValidation, symbol,
				fmt.Sprintf("malformed dividend date %q", d.ExDate), err)
		}
		dividends = append(dividends, entity.DividendPayment{ExDate: exDate, Amount: d.Amount})
	}
	return dividends, nil
}

// ValidateSymbol checks whether the provider knows the symbol.
func (c *Client) ValidateSymbol(ctx context.Context, symbol string) error {
	_, err := c.GetFinancialInfo(ctx, symbol)
	return err
}

// get performs one GET request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, symbol, path string, query url.Values, out any) error {
	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entity.NewMarketError(valueobject.ErrorKindProgrammingDefect, symbol,
			"failed to build provider request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(symbol, err)
	}
	defer resp.Body.Close()

	if err := c.statusError(symbol, resp); err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return entity.NewMarketError(valueobject.ErrorKindNetworkTransient, symbol,
			"failed to read provider response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return entity.NewMarketError(valueobject.ErrorKindValidation, symbol,
			"malformed provider response", err)
	}
	return nil
}

// transportError maps connection-level failures to error kinds.
func (c *Client) transportError(symbol string, err error) error {
	if errors.Is(err, context.Canceled) {
		return entity.NewMarketError(valueobject.ErrorKindUserCancellation, symbol, "request cancelled", err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return entity.NewMarketError(valueobject.ErrorKindNetworkTransient, symbol, "provider request timed out", err)
	}
	return entity.NewMarketError(valueobject.ErrorKindNetworkTransient, symbol, "provider connection failed", err)
}

// statusError maps HTTP status codes to error kinds.
func (c *Client) statusError(symbol string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return entity.NotFoundError(symbol, "no data available, possibly delisted")
	case resp.StatusCode == http.StatusTooManyRequests:
		marketErr := entity.RateLimitError(symbol, "provider rate limit exceeded")
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			marketErr.Message = fmt.Sprintf("provider rate limit exceeded, retry after %s", retryAfter)
		}
		return marketErr
	case resp.StatusCode >= 500:
		return &entity.MarketError{
			Kind:       valueobject.ErrorKindRemote,
			StatusCode: resp.StatusCode,
			Symbol:     symbol,
			Message:    fmt.Sprintf("provider error: %s", resp.Status),
		}
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return &entity.MarketError{
			Kind:       valueobject.ErrorKindValidation,
			StatusCode: resp.StatusCode,
			Symbol:     symbol,
			Message:    fmt.Sprintf("provider rejected request: %s", resp.Status),
		}
	default:
		return &entity.MarketError{
			Kind:       valueobject.ErrorKindRemote,
			StatusCode: resp.StatusCode,
			Symbol:     symbol,
			Message:    fmt.Sprintf("unexpected provider status: %s", resp.Status),
		}
	}
}
