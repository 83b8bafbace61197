package utxo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Atomik-Global/atomik-wallet/internal/storage"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Context tracks a set of addresses on a Processor and keeps their UTXO
// entries. Entries younger than the maturity depth count as pending.
type Context struct {
	proc *Processor

	mu        sync.Mutex
	addresses map[string]struct{}
	store     *Store
	pending   map[types.Outpoint]struct{}
}

// NewContext binds a new, empty context to proc.
func NewContext(proc *Processor) *Context {
	c := &Context{
		proc:      proc,
		addresses: make(map[string]struct{}),
		store:     NewStore(storage.NewMemory()),
		pending:   make(map[types.Outpoint]struct{}),
	}
	proc.bind(c)
	return c
}

// Processor returns the processor the context is bound to.
func (c *Context) Processor() *Processor {
	return c.proc
}

// TrackAddresses subscribes to UTXO changes of addrs and loads their current
// entries. Addresses already tracked are skipped. The processor must be
// active and every address must belong to the processor's network.
func (c *Context) TrackAddresses(ctx context.Context, addrs []string) error {
	if !c.proc.IsActive() {
		return ErrNotActive
	}
	network := c.proc.Network()
	for _, a := range addrs {
		if _, err := types.ValidateAddress(a, network); err != nil {
			return err
		}
	}

	c.mu.Lock()
	var fresh []string
	seen := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		if _, ok := c.addresses[a]; ok {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		fresh = append(fresh, a)
	}
	for _, a := range fresh {
		c.addresses[a] = struct{}{}
	}
	c.mu.Unlock()
	if len(fresh) == 0 {
		return nil
	}

	node := c.proc.node
	err := node.NotifyUtxosChanged(ctx, fresh)
	var entries []types.UtxoEntry
	if err == nil {
		entries, err = node.GetUtxosByAddresses(ctx, fresh)
	}
	if err != nil {
		c.mu.Lock()
		for _, a := range fresh {
			delete(c.addresses, a)
		}
		c.mu.Unlock()
		return fmt.Errorf("track addresses: %w", err)
	}

	c.proc.log.Debug().Int("addresses", len(fresh)).Int("utxos", len(entries)).Msg("Tracking addresses")
	c.load(entries)
	return nil
}

// load stores entries fetched from the node and emits the resulting
// events. A balance event is always emitted.
func (c *Context) load(entries []types.UtxoEntry) {
	daa := c.proc.DaaScore()
	events := c.applyChanges(entries, nil, daa)
	if len(events) == 0 {
		c.mu.Lock()
		bal := c.balanceLocked(daa)
		c.mu.Unlock()
		events = []Event{{Type: EventBalance, Context: c, Balance: &bal}}
	}
	for _, ev := range events {
		c.proc.emit(ev)
	}
}

// UnregisterAddresses stops tracking addrs and drops their entries. The
// node is told to stop notifying only while the processor is active.
func (c *Context) UnregisterAddresses(ctx context.Context, addrs []string) error {
	c.mu.Lock()
	var known []string
	for _, a := range addrs {
		if _, ok := c.addresses[a]; ok {
			known = append(known, a)
		}
	}
	c.mu.Unlock()
	if len(known) == 0 {
		return nil
	}

	var notifyErr error
	if c.proc.IsActive() && c.proc.node.IsConnected() {
		notifyErr = c.proc.node.StopNotifyingUtxosChanged(ctx, known)
	}

	c.mu.Lock()
	for _, a := range known {
		delete(c.addresses, a)
		entries, err := c.store.GetByAddress(a)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		for _, e := range entries {
			delete(c.pending, e.Outpoint)
		}
		if err := c.store.DeleteAddress(a); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	bal := c.balanceLocked(c.proc.DaaScore())
	c.mu.Unlock()

	c.proc.emit(Event{Type: EventBalance, Context: c, Balance: &bal})
	if notifyErr != nil {
		return fmt.Errorf("unregister addresses: %w", notifyErr)
	}
	return nil
}

// Clear unregisters every tracked address.
func (c *Context) Clear(ctx context.Context) error {
	return c.UnregisterAddresses(ctx, c.Addresses())
}

// Addresses returns the tracked addresses in sorted order.
func (c *Context) Addresses() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.addresses))
	for a := range c.addresses {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Balance returns the current balance at the processor's DAA score.
func (c *Context) Balance() Balance {
	daa := c.proc.DaaScore()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balanceLocked(daa)
}

// MatureEntries returns spendable entries, largest first.
func (c *Context) MatureEntries() []types.UtxoEntry {
	return c.entries(true)
}

// PendingEntries returns entries below the maturity depth, largest first.
func (c *Context) PendingEntries() []types.UtxoEntry {
	return c.entries(false)
}

func (c *Context) entries(mature bool) []types.UtxoEntry {
	daa := c.proc.DaaScore()
	cfg := c.proc.Config()
	c.mu.Lock()
	all, _ := c.store.All()
	c.mu.Unlock()

	out := make([]types.UtxoEntry, 0, len(all))
	for _, e := range all {
		if e.IsMature(daa, cfg.UserMaturityDepth, cfg.CoinbaseMaturityDepth) == mature {
			out = append(out, e)
		}
	}
	return out
}

// balanceLocked must be called with c.mu held.
func (c *Context) balanceLocked(daa uint64) Balance {
	cfg := c.proc.Config()
	var b Balance
	_ = c.store.ForEach(func(e types.UtxoEntry) error {
		if e.IsMature(daa, cfg.UserMaturityDepth, cfg.CoinbaseMaturityDepth) {
			b.Mature += e.Amount()
			b.MatureCount++
		} else {
			b.Pending += e.Amount()
			b.PendingCount++
		}
		return nil
	})
	return b
}

// applyChanges folds added and removed entries of tracked addresses into
// the store and returns the events to emit.
func (c *Context) applyChanges(added, removed []types.UtxoEntry, daa uint64) []Event {
	cfg := c.proc.Config()
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	for _, e := range removed {
		if _, ok := c.addresses[e.Address]; !ok {
			continue
		}
		if err := c.store.Delete(e.Outpoint); err != nil {
			c.proc.log.Warn().Err(err).Str("outpoint", e.Outpoint.String()).Msg("Failed to drop spent UTXO")
			continue
		}
		delete(c.pending, e.Outpoint)
		changed = true
	}

	var pending, mature []types.UtxoEntry
	for _, e := range added {
		if _, ok := c.addresses[e.Address]; !ok {
			continue
		}
		if err := c.store.Put(e); err != nil {
			c.proc.log.Warn().Err(err).Str("outpoint", e.Outpoint.String()).Msg("Failed to store UTXO")
			continue
		}
		changed = true
		if e.IsMature(daa, cfg.UserMaturityDepth, cfg.CoinbaseMaturityDepth) {
			mature = append(mature, e)
		} else {
			c.pending[e.Outpoint] = struct{}{}
			pending = append(pending, e)
		}
	}
	if !changed {
		return nil
	}

	var events []Event
	if len(pending) > 0 {
		events = append(events, Event{Type: EventPending, Context: c, Entries: pending})
	}
	if len(mature) > 0 {
		events = append(events, Event{Type: EventMaturity, Context: c, Entries: mature})
	}
	bal := c.balanceLocked(daa)
	return append(events, Event{Type: EventBalance, Context: c, Balance: &bal})
}

// promote moves pending entries that reached maturity at daa.
func (c *Context) promote(daa uint64) []Event {
	cfg := c.proc.Config()
	c.mu.Lock()
	defer c.mu.Unlock()

	var matured []types.UtxoEntry
	for op := range c.pending {
		e, err := c.store.Get(op)
		if err != nil {
			delete(c.pending, op)
			continue
		}
		if e.IsMature(daa, cfg.UserMaturityDepth, cfg.CoinbaseMaturityDepth) {
			delete(c.pending, op)
			matured = append(matured, e)
		}
	}
	if len(matured) == 0 {
		return nil
	}
	sortEntries(matured)
	bal := c.balanceLocked(daa)
	return []Event{
		{Type: EventMaturity, Context: c, Entries: matured},
		{Type: EventBalance, Context: c, Balance: &bal},
	}
}

// resync re-registers every tracked address after a processor restart and
// replaces the stored entries with the node's current view.
func (c *Context) resync(ctx context.Context) error {
	addrs := c.Addresses()
	if len(addrs) == 0 {
		return nil
	}
	node := c.proc.node
	if err := node.NotifyUtxosChanged(ctx, addrs); err != nil {
		return fmt.Errorf("resync addresses: %w", err)
	}
	entries, err := node.GetUtxosByAddresses(ctx, addrs)
	if err != nil {
		return fmt.Errorf("resync addresses: %w", err)
	}

	c.mu.Lock()
	if err := c.store.ClearAll(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.pending = make(map[types.Outpoint]struct{})
	c.mu.Unlock()

	c.load(entries)
	return nil
}
