package infosimples

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
)

const (
	DefaultBaseURL = "https://api.infosimples.com/api/v2/consultas/receita-federal/perdcomp"
	// DefaultProviderTimeout is the server-side budget, in seconds, sent with
	// every request.
	DefaultProviderTimeout = 600
	DefaultHTTPTimeout     = 630 * time.Second

	// LookbackYears is the default query window.
	LookbackYears = 5
)

var (
	ErrMissingToken = errors.New("infosimples: missing token")

	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

type Options struct {
	BaseURL         string
	Token           string
	ProviderTimeout int
	HTTPTimeout     time.Duration
	Retry           RetryPolicy
}

type Client struct {
	baseURL         string
	token           string
	providerTimeout int
	retry           RetryPolicy
	httpClient      *http.Client
	now             func() time.Time
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, ErrMissingToken
	}

	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = DefaultHTTPTimeout
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}

	return &Client{
		baseURL:         strings.TrimSpace(opts.BaseURL),
		token:           strings.TrimSpace(opts.Token),
		providerTimeout: opts.ProviderTimeout,
		retry:           opts.Retry,
		httpClient:      &http.Client{Timeout: opts.HTTPTimeout},
		now:             time.Now,
	}, nil
}

type Request struct {
	CNPJ      string
	StartDate string
	EndDate   string
}

// Fetch queries the provider for every filing of a CNPJ in the date range,
// retrying transient failures. Errors are always *ProviderError unless the
// context ends first.
func (c *Client) Fetch(ctx context.Context, req Request) (*Result, error) {
	start, end := ResolveRange(req.StartDate, req.EndDate, c.now())

	form := url.Values{}
	form.Set("token", c.token)
	form.Set("cnpj", req.CNPJ)
	form.Set("data_inicio", start)
	form.Set("data_fim", end)
	form.Set("timeout", strconv.Itoa(c.providerTimeout))

	log.Debugf("infosimples: fetching %s from %s to %s", req.CNPJ, start, end)
	return WithRetry(ctx, c.retry, func(ctx context.Context) (*Result, error) {
		return c.fetchOnce(ctx, form)
	})
}

func (c *Client) fetchOnce(ctx context.Context, form url.Values) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("infosimples: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(err)
	}

	decoded := Decode(resp.StatusCode, statusText(resp), body)
	if decoded.Err != nil {
		return nil, decoded.Err
	}
	return decoded.Result, nil
}

// ResolveRange fills in the query window: end defaults to today, start to
// five years before end, and a start after end is reset the same way.
func ResolveRange(start, end string, today time.Time) (string, string) {
	end = trimDate(end)
	start = trimDate(start)

	if !isoDatePattern.MatchString(end) {
		end = today.Format(time.DateOnly)
	}
	endTime, err := time.Parse(time.DateOnly, end)
	if err != nil {
		endTime = today
		end = today.Format(time.DateOnly)
	}

	fallback := endTime.AddDate(-LookbackYears, 0, 0).Format(time.DateOnly)
	if !isoDatePattern.MatchString(start) {
		return fallback, end
	}
	startTime, err := time.Parse(time.DateOnly, start)
	if err != nil || startTime.After(endTime) {
		return fallback, end
	}
	return start, end
}

func trimDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}
