package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
	"github.com/hashicorp/go-multierror"
)

// DefaultResolvers are the public resolver services queried when no node
// URL is configured.
var DefaultResolvers = []string{
	"https://rose.kaspa.green",
	"https://ivy.kaspa.green",
	"https://turtle.kaspa.green",
	"https://eagle.kaspa.red",
}

// Resolver discovers a public node endpoint for a network.
type Resolver struct {
	URLs    []string
	HTTP    *http.Client
	Shuffle bool
}

// NewResolver returns a resolver over urls, or DefaultResolvers when urls is
// empty. Resolvers are tried in random order.
func NewResolver(urls ...string) *Resolver {
	if len(urls) == 0 {
		urls = DefaultResolvers
	}
	return &Resolver{
		URLs:    append([]string(nil), urls...),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Shuffle: true,
	}
}

type resolverResponse struct {
	UID string `json:"uid"`
	URL string `json:"url"`
}

// Resolve returns a wRPC JSON endpoint for network. Each resolver is tried
// once; the errors of all failed attempts are returned together.
func (r *Resolver) Resolve(ctx context.Context, network types.Network) (string, error) {
	urls := append([]string(nil), r.URLs...)
	if r.Shuffle {
		rand.Shuffle(len(urls), func(i, j int) { urls[i], urls[j] = urls[j], urls[i] })
	}

	var errs *multierror.Error
	for _, base := range urls {
		endpoint, err := r.query(ctx, base, network)
		if err == nil {
			return endpoint, nil
		}
		errs = multierror.Append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if errs == nil {
		return "", fmt.Errorf("%w: no resolvers configured", ErrConnection)
	}
	return "", fmt.Errorf("%w: resolve %s endpoint: %v", ErrConnection, network, errs.ErrorOrNil())
}

func (r *Resolver) query(ctx context.Context, base string, network types.Network) (string, error) {
	u := fmt.Sprintf("%s/v2/kaspa/%s/tls/wrpc/json", strings.TrimRight(base, "/"), network)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: status %d", base, resp.StatusCode)
	}
	var out resolverResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode: %w", base, err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("%s: empty endpoint", base)
	}
	return out.URL, nil
}
