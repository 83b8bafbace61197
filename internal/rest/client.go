// Package rest is a client for the Kaspa REST API, used for balance, UTXO
// and transaction history lookups outside the node connection.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	klog "github.com/Atomik-Global/atomik-wallet/internal/log"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// ErrUnavailable wraps every failed request: transport errors, non-2xx
// answers, undecodable bodies and an open circuit breaker.
var ErrUnavailable = errors.New("rest api unavailable")

// Breaker trip thresholds.
var (
	MaxConsecutiveFailures uint32 = 5
	OpenTimeout                   = 30 * time.Second
)

// Client talks to one REST API base URL through a circuit breaker.
type Client struct {
	base string
	http *http.Client
	cb   *gobreaker.CircuitBreaker
	log  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the network's default API URL.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New returns a client for network's public API.
func New(network types.Network, opts ...Option) *Client {
	c := &Client{
		base: network.APIURL(),
		http: &http.Client{Timeout: 15 * time.Second},
		log:  klog.WithNetwork(klog.REST, network.String()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cb = c.newCircuitBreaker()
	return c
}

func (c *Client) newCircuitBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "rest:" + c.base,
		Timeout: OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= MaxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("REST circuit breaker state changed")
		},
	})
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.base
}

// State returns the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

// HTTPError is a non-2xx answer.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// get fetches path and decodes the JSON body into v. Client errors (4xx)
// do not count against the breaker.
func (c *Client) get(ctx context.Context, path string, query url.Values, v interface{}) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	body, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}
		return &response{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("REST request failed")
		return fmt.Errorf("%w: GET %s: %v", ErrUnavailable, path, err)
	}

	r := body.(*response)
	if r.status < 200 || r.status > 299 {
		err := &HTTPError{Status: r.status, Body: strings.TrimSpace(string(r.body))}
		return fmt.Errorf("%w: GET %s: %w", ErrUnavailable, path, err)
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

type response struct {
	status int
	body   []byte
}

// GetBalance returns the balance of address in sompi.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	var out struct {
		Address string   `json:"address"`
		Balance flexUint `json:"balance"`
	}
	if err := c.get(ctx, "/addresses/"+url.PathEscape(address)+"/balance", nil, &out); err != nil {
		return 0, err
	}
	return uint64(out.Balance), nil
}

// GetUtxos returns the UTXO entries of address.
func (c *Client) GetUtxos(ctx context.Context, address string) ([]types.UtxoEntry, error) {
	var raw []utxoJSON
	if err := c.get(ctx, "/addresses/"+url.PathEscape(address)+"/utxos", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]types.UtxoEntry, len(raw))
	for i, r := range raw {
		out[i] = r.entry()
	}
	return out, nil
}

// PageOptions selects a page of transaction history.
type PageOptions struct {
	Limit                    int
	Before                   uint64
	After                    uint64
	ResolvePreviousOutpoints string
}

// DefaultPageOptions returns the first page of 50 transactions without
// resolved previous outpoints.
func DefaultPageOptions() PageOptions {
	return PageOptions{Limit: 50, ResolvePreviousOutpoints: "no"}
}

func (o PageOptions) values() url.Values {
	if o.Limit <= 0 {
		o.Limit = 50
	}
	if o.ResolvePreviousOutpoints == "" {
		o.ResolvePreviousOutpoints = "no"
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(o.Limit))
	q.Set("before", strconv.FormatUint(o.Before, 10))
	q.Set("after", strconv.FormatUint(o.After, 10))
	q.Set("resolve_previous_outpoints", o.ResolvePreviousOutpoints)
	return q
}

// GetFullTransactionsPage returns a page of address's transactions, newest
// first.
func (c *Client) GetFullTransactionsPage(ctx context.Context, address string, opts PageOptions) ([]Transaction, error) {
	var out []Transaction
	path := "/addresses/" + url.PathEscape(address) + "/full-transactions-page"
	if err := c.get(ctx, path, opts.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}
