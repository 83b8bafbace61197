// Package utxo follows the UTXO sets of tracked addresses through node
// notifications and reports balance changes as events.
package utxo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Atomik-Global/atomik-wallet/internal/log"
	"github.com/Atomik-Global/atomik-wallet/internal/rpcclient"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
	"github.com/rs/zerolog"
)

// Default maturity depths in DAA score units.
const (
	DefaultUserMaturityDepth     = 100
	DefaultCoinbaseMaturityDepth = 1000
)

// ErrNotActive is returned when a Context is used while its processor is
// stopped.
var ErrNotActive = errors.New("utxo processor is not active")

// Node is the part of the RPC client the processor needs.
type Node interface {
	IsConnected() bool
	GetServerInfo(ctx context.Context) (*rpcclient.ServerInfo, error)
	GetUtxosByAddresses(ctx context.Context, addresses []string) ([]types.UtxoEntry, error)
	NotifyUtxosChanged(ctx context.Context, addresses []string) error
	StopNotifyingUtxosChanged(ctx context.Context, addresses []string) error
	NotifyVirtualDaaScoreChanged(ctx context.Context) error
	OnUtxosChanged(fn func(rpcclient.UtxosChanged)) rpcclient.Subscription
	OnVirtualDaaScoreChanged(fn func(uint64)) rpcclient.Subscription
	Unsubscribe(id rpcclient.Subscription)
}

// Config holds the maturity rules of a Processor.
type Config struct {
	UserMaturityDepth     uint64
	CoinbaseMaturityDepth uint64
}

// DefaultConfig returns mainnet maturity depths.
func DefaultConfig() Config {
	return Config{
		UserMaturityDepth:     DefaultUserMaturityDepth,
		CoinbaseMaturityDepth: DefaultCoinbaseMaturityDepth,
	}
}

// ListenerID identifies a registered event listener.
type ListenerID uint64

// Processor subscribes to a node's UTXO and DAA score notifications and
// feeds them to the Contexts bound to it.
type Processor struct {
	node    Node
	network types.Network
	cfg     Config
	log     zerolog.Logger

	mu       sync.Mutex
	active   bool
	daaScore uint64
	subs     []rpcclient.Subscription
	contexts map[*Context]struct{}

	listenersMu  sync.RWMutex
	listeners    map[ListenerID]Listener
	nextListener ListenerID
}

// NewProcessor binds a processor to node for network.
func NewProcessor(node Node, network types.Network, cfg Config) *Processor {
	return &Processor{
		node:      node,
		network:   network,
		cfg:       cfg,
		log:       log.WithNetwork(log.UTXO, network.String()),
		contexts:  make(map[*Context]struct{}),
		listeners: make(map[ListenerID]Listener),
	}
}

// Network returns the processor's network.
func (p *Processor) Network() types.Network {
	return p.network
}

// Config returns the maturity rules.
func (p *Processor) Config() Config {
	return p.cfg
}

// IsActive reports whether Start has succeeded and Stop not been called.
func (p *Processor) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// DaaScore returns the last known virtual DAA score.
func (p *Processor) DaaScore() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.daaScore
}

// Start subscribes to node notifications and re-registers the addresses of
// every bound context. It is a no-op when already active.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if !p.node.IsConnected() {
		return rpcclient.ErrNotConnected
	}
	info, err := p.node.GetServerInfo(ctx)
	if err != nil {
		return fmt.Errorf("start utxo processor: %w", err)
	}
	if info.NetworkID != "" && info.NetworkID != p.network.String() {
		return fmt.Errorf("%w: node serves %s, processor is for %s", rpcclient.ErrConnection, info.NetworkID, p.network)
	}

	subs := []rpcclient.Subscription{
		p.node.OnUtxosChanged(p.handleUtxosChanged),
		p.node.OnVirtualDaaScoreChanged(p.handleDaaScore),
	}
	if err := p.node.NotifyVirtualDaaScoreChanged(ctx); err != nil {
		for _, s := range subs {
			p.node.Unsubscribe(s)
		}
		return fmt.Errorf("start utxo processor: %w", err)
	}

	p.mu.Lock()
	p.active = true
	p.daaScore = info.VirtualDaaScore
	p.subs = subs
	contexts := p.boundContexts()
	p.mu.Unlock()

	p.log.Debug().Uint64("daa_score", info.VirtualDaaScore).Msg("UTXO processor started")
	p.emit(Event{Type: EventStart})

	for _, c := range contexts {
		if err := c.resync(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop drops the node subscriptions. Bound contexts keep their addresses
// and are re-registered by the next Start. It is a no-op when not active.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return nil
	}
	p.active = false
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()

	for _, s := range subs {
		p.node.Unsubscribe(s)
	}
	p.log.Debug().Msg("UTXO processor stopped")
	p.emit(Event{Type: EventStop})
	return nil
}

// AddEventListener registers l for every event and returns its handle.
func (p *Processor) AddEventListener(l Listener) ListenerID {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.nextListener++
	p.listeners[p.nextListener] = l
	return p.nextListener
}

// RemoveEventListener unregisters a listener. Unknown handles are ignored.
func (p *Processor) RemoveEventListener(id ListenerID) {
	p.listenersMu.Lock()
	delete(p.listeners, id)
	p.listenersMu.Unlock()
}

// ListenerCount returns the number of registered listeners.
func (p *Processor) ListenerCount() int {
	p.listenersMu.RLock()
	defer p.listenersMu.RUnlock()
	return len(p.listeners)
}

func (p *Processor) emit(ev Event) {
	p.listenersMu.RLock()
	ls := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		ls = append(ls, l)
	}
	p.listenersMu.RUnlock()

	for _, l := range ls {
		l(ev)
	}
}

func (p *Processor) bind(c *Context) {
	p.mu.Lock()
	p.contexts[c] = struct{}{}
	p.mu.Unlock()
}

// boundContexts must be called with p.mu held.
func (p *Processor) boundContexts() []*Context {
	out := make([]*Context, 0, len(p.contexts))
	for c := range p.contexts {
		out = append(out, c)
	}
	return out
}

func (p *Processor) handleUtxosChanged(n rpcclient.UtxosChanged) {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	daa := p.daaScore
	contexts := p.boundContexts()
	p.mu.Unlock()

	for _, c := range contexts {
		for _, ev := range c.applyChanges(n.Added, n.Removed, daa) {
			p.emit(ev)
		}
	}
}

func (p *Processor) handleDaaScore(score uint64) {
	p.mu.Lock()
	if !p.active || score <= p.daaScore {
		p.mu.Unlock()
		return
	}
	p.daaScore = score
	contexts := p.boundContexts()
	p.mu.Unlock()

	p.emit(Event{Type: EventDaaScoreChange, DaaScore: score})
	for _, c := range contexts {
		for _, ev := range c.promote(score) {
			p.emit(ev)
		}
	}
}
