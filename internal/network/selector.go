// Package network holds the process-wide network selection.
package network

import (
	"sync"

	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Token identifies a change subscription.
type Token uint64

// Selector holds the selected network and notifies subscribers when it
// changes.
type Selector struct {
	mu      sync.RWMutex
	network types.Network
	subs    map[Token]func(types.Network)
	next    Token
}

// NewSelector returns a selector starting on n.
func NewSelector(n types.Network) *Selector {
	return &Selector{
		network: n,
		subs:    make(map[Token]func(types.Network)),
	}
}

// Network returns the selected network.
func (s *Selector) Network() types.Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.network
}

// SetNetwork selects n. Subscribers run synchronously, only on a change.
func (s *Selector) SetNetwork(n types.Network) {
	s.mu.Lock()
	if s.network == n {
		s.mu.Unlock()
		return
	}
	s.network = n
	fns := make([]func(types.Network), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
}

// IsMainnet reports whether mainnet is selected.
func (s *Selector) IsMainnet() bool {
	return s.Network().IsMainnet()
}

// Ticker returns KAS or TKAS.
func (s *Selector) Ticker() string {
	return s.Network().Ticker()
}

// ExplorerURL returns the block explorer of the selected network.
func (s *Selector) ExplorerURL() string {
	return s.Network().ExplorerURL()
}

// IsValidAddress reports whether addr carries the selected network's
// prefix. It does not check the checksum; use types.ValidateAddress for
// that.
func (s *Selector) IsValidAddress(addr string) bool {
	return s.Network().OwnsAddress(addr)
}

// Subscribe registers fn for network changes.
func (s *Selector) Subscribe(fn func(types.Network)) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.subs[s.next] = fn
	return s.next
}

// Unsubscribe removes a subscription. Unknown tokens are ignored.
func (s *Selector) Unsubscribe(t Token) {
	s.mu.Lock()
	delete(s.subs, t)
	s.mu.Unlock()
}
