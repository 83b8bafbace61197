// Package session owns the node connection of a wallet: one RPC client and
// its UTXO processor at a time, plus the registry of tracked addresses.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/looplab/fsm"
	"github.com/rs/zerolog"

	klog "github.com/Atomik-Global/atomik-wallet/internal/log"
	"github.com/Atomik-Global/atomik-wallet/internal/rpcclient"
	"github.com/Atomik-Global/atomik-wallet/internal/utxo"
	"github.com/Atomik-Global/atomik-wallet/pkg/types"
)

// Session states.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateTracking     = "tracking"
)

// Session events.
const (
	eventConnect    = "connect"
	eventConnected  = "connected"
	eventFail       = "fail"
	eventTrack      = "track"
	eventUntrack    = "untrack"
	eventDisconnect = "disconnect"
)

// ErrNotInitialized is returned by operations that need a session before
// Init has been called.
var ErrNotInitialized = errors.New("session not initialized")

// Options configures how a Manager reaches nodes.
type Options struct {
	// Endpoints maps a network to a fixed wRPC URL. Networks without an
	// entry are resolved through Resolver.
	Endpoints map[types.Network]string
	Resolver  *rpcclient.Resolver
	Maturity  utxo.Config
}

// Manager holds the single active connection and UTXO processor pair.
// Lifecycle operations are serialized; Init fully tears down the previous
// pair before building a new one.
type Manager struct {
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	network  types.Network
	client   *rpcclient.Client
	proc     *utxo.Processor
	uctx     *utxo.Context
	machine  *fsm.FSM
	registry *Registry
}

// NewManager creates a manager with no session. Call Init before use.
func NewManager(opts Options) *Manager {
	if opts.Maturity == (utxo.Config{}) {
		opts.Maturity = utxo.DefaultConfig()
	}
	m := &Manager{
		opts:    opts,
		log:     klog.Session,
		machine: newStateMachine(),
	}
	m.registry = &Registry{m: m}
	return m
}

// newStateMachine builds the session state machine:
//
//	disconnected --connect--> connecting --connected--> connected
//	connecting --fail--> disconnected
//	connected|tracking --track--> tracking --untrack--> connected
//	any --disconnect--> disconnected
func newStateMachine() *fsm.FSM {
	return fsm.NewFSM(
		StateDisconnected,
		fsm.Events{
			{Name: eventConnect, Src: []string{StateDisconnected}, Dst: StateConnecting},
			{Name: eventConnected, Src: []string{StateConnecting}, Dst: StateConnected},
			{Name: eventFail, Src: []string{StateConnecting}, Dst: StateDisconnected},
			{Name: eventTrack, Src: []string{StateConnected, StateTracking}, Dst: StateTracking},
			{Name: eventUntrack, Src: []string{StateTracking}, Dst: StateConnected},
			{
				Name: eventDisconnect,
				Src:  []string{StateConnecting, StateConnected, StateTracking},
				Dst:  StateDisconnected,
			},
		},
		fsm.Callbacks{},
	)
}

// fire applies event; staying in the same state is not an error.
func (m *Manager) fire(ctx context.Context, event string) error {
	err := m.machine.Event(ctx, event)
	if err == nil {
		return nil
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return fmt.Errorf("session %s from %s: %w", event, m.machine.Current(), err)
}

// Init binds the manager to network. Any previous session is disposed
// first, so calling Init while addresses are tracked untracks them and
// stops the old processor before the new client is built. The new session
// starts disconnected.
func (m *Manager) Init(ctx context.Context, network types.Network) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.disposeLocked(ctx); err != nil {
		m.log.Warn().Err(err).Msg("Dispose before init failed")
	}

	url, err := m.resolve(ctx, network)
	if err != nil {
		return err
	}

	m.network = network
	m.client = rpcclient.New(url)
	m.proc = utxo.NewProcessor(m.client, network, m.opts.Maturity)
	m.uctx = utxo.NewContext(m.proc)
	m.machine = newStateMachine()
	m.registry.reset()

	lg := klog.WithNetwork(m.log, network.String())
	lg.Info().Str("url", url).Msg("Session initialized")
	return nil
}

func (m *Manager) resolve(ctx context.Context, network types.Network) (string, error) {
	if url := m.opts.Endpoints[network]; url != "" {
		return url, nil
	}
	if m.opts.Resolver == nil {
		return "", fmt.Errorf("%w: no endpoint configured for %s", rpcclient.ErrConnection, network)
	}
	return m.opts.Resolver.Resolve(ctx, network)
}

// Connect opens the connection. It is a no-op when already connected. An
// already started processor is restarted after the reconnect so it
// resubscribes and reloads its tracked addresses.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return ErrNotInitialized
	}
	if m.client.IsConnected() {
		return nil
	}
	if m.machine.Current() != StateDisconnected {
		// The link dropped underneath us.
		if err := m.fire(ctx, eventDisconnect); err != nil {
			return err
		}
	}

	if err := m.fire(ctx, eventConnect); err != nil {
		return err
	}
	if err := m.client.Connect(ctx); err != nil {
		_ = m.fire(ctx, eventFail)
		return err
	}
	if err := m.fire(ctx, eventConnected); err != nil {
		return err
	}
	m.log.Info().Str("url", m.client.URL()).Msg("Connected to node")

	if m.proc.IsActive() {
		if err := m.proc.Stop(ctx); err != nil {
			return err
		}
		if err := m.proc.Start(ctx); err != nil {
			return err
		}
	}
	if m.registry.active() {
		return m.fire(ctx, eventTrack)
	}
	return nil
}

// Dispose untracks every address, stops the processor and disconnects.
// It is a no-op without a session or when already disconnected.
func (m *Manager) Dispose(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposeLocked(ctx)
}

func (m *Manager) disposeLocked(ctx context.Context) error {
	if m.client == nil || !m.client.IsConnected() {
		return nil
	}

	var result *multierror.Error
	if m.proc.IsActive() {
		if err := m.registry.untrackLocked(ctx); err != nil {
			result = multierror.Append(result, err)
		}
		if err := m.proc.Stop(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := m.client.Disconnect(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := m.fire(ctx, eventDisconnect); err != nil {
		result = multierror.Append(result, err)
	}

	m.log.Info().Msg("Session disposed")
	return result.ErrorOrNil()
}

// State returns the current session state.
func (m *Manager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Current()
}

// Network returns the network of the current session.
func (m *Manager) Network() types.Network {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.network
}

// Client returns the RPC client, or nil before Init.
func (m *Manager) Client() *rpcclient.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// Processor returns the UTXO processor, or nil before Init.
func (m *Manager) Processor() *utxo.Processor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc
}

// Context returns the UTXO context, or nil before Init.
func (m *Manager) Context() *utxo.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uctx
}

// Registry returns the address tracking registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}
