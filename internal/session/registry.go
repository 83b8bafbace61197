package session

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/Atomik-Global/atomik-wallet/internal/utxo"
)

// BalanceFunc receives pending and mature balance in sompi.
type BalanceFunc func(pending, mature uint64)

// TrackRequest names the addresses to track and the balance callback.
type TrackRequest struct {
	Addresses       []string
	OnChangeBalance BalanceFunc
}

// Registry holds the one tracked address set of a Manager.
type Registry struct {
	m *Manager

	addresses   []string
	listener    utxo.ListenerID
	hasListener bool
}

// TrackAddresses replaces the tracked set with req.Addresses. An active
// processor is stopped and restarted first so no registration is
// duplicated. The callback only sees balance events of this session's
// context.
func (r *Registry) TrackAddresses(ctx context.Context, req TrackRequest) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	m := r.m
	if m.proc == nil {
		return ErrNotInitialized
	}
	if err := r.untrackLocked(ctx); err != nil {
		m.log.Warn().Err(err).Msg("Untrack of previous address set failed")
	}
	if m.proc.IsActive() {
		if err := m.proc.Stop(ctx); err != nil {
			return err
		}
	}
	if err := m.proc.Start(ctx); err != nil {
		return err
	}

	uctx := m.uctx
	onChange := req.OnChangeBalance
	id := m.proc.AddEventListener(func(ev utxo.Event) {
		if ev.Type != utxo.EventBalance || ev.Context != uctx || onChange == nil {
			return
		}
		var pending, mature uint64
		if ev.Balance != nil {
			pending, mature = ev.Balance.Pending, ev.Balance.Mature
		}
		onChange(pending, mature)
	})

	if err := uctx.TrackAddresses(ctx, req.Addresses); err != nil {
		m.proc.RemoveEventListener(id)
		return err
	}

	r.addresses = append([]string(nil), req.Addresses...)
	r.listener = id
	r.hasListener = true
	m.log.Info().Int("addresses", len(req.Addresses)).Msg("Tracking addresses")
	return m.fire(ctx, eventTrack)
}

// UntrackAddresses drops the tracked set, its listener and stops the
// processor. It is a no-op when nothing is tracked.
func (r *Registry) UntrackAddresses(ctx context.Context) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.untrackLocked(ctx)
}

func (r *Registry) untrackLocked(ctx context.Context) error {
	if len(r.addresses) == 0 && !r.hasListener {
		return nil
	}
	m := r.m

	// The outgoing callback must not see the balance drop to zero.
	if r.hasListener {
		m.proc.RemoveEventListener(r.listener)
	}
	var result *multierror.Error
	if err := m.uctx.UnregisterAddresses(ctx, r.addresses); err != nil {
		result = multierror.Append(result, err)
	}
	if err := m.proc.Stop(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	r.reset()
	if m.machine.Current() == StateTracking {
		if err := m.fire(ctx, eventUntrack); err != nil {
			result = multierror.Append(result, err)
		}
	}
	m.log.Info().Msg("Untracked addresses")
	return result.ErrorOrNil()
}

// Tracked returns a copy of the tracked addresses.
func (r *Registry) Tracked() []string {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return append([]string(nil), r.addresses...)
}

func (r *Registry) active() bool {
	return len(r.addresses) > 0
}

func (r *Registry) reset() {
	r.addresses = nil
	r.listener = 0
	r.hasListener = false
}
