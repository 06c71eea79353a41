// Package registration keeps the local belief about a (user, event)
// registration in sync with the upstream source of truth. State only moves
// through explicit remote calls; it is never inferred locally after the
// initial check.
package registration

import (
	"context"
	"sync"
	"time"
)

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateUnknown         State = "unknown"
	StateChecking        State = "checking"
	StateNotRegistered   State = "not-registered"
	StateRegistered      State = "registered"
	StatePending         State = "pending-confirmation"
	StateSubmitting      State = "submitting"
)

type Action string

const (
	ActionLogin      Action = "login"
	ActionRegister   Action = "register"
	ActionUnregister Action = "unregister"
)

// RegisterOutcome distinguishes a confirmed registration from one the
// organizer still has to approve.
type RegisterOutcome struct {
	RequiresApproval bool
	Message          string
}

// Client is the remote side of the reconciler. Implementations translate
// HTTP failures into errors whose message is already user-facing.
type Client interface {
	CheckRegistration(ctx context.Context, token, eventID string) (bool, error)
	Register(ctx context.Context, token, eventID string) (RegisterOutcome, error)
	Unregister(ctx context.Context, token, eventID string) error
}

// Status is a read-only snapshot of the machine.
type Status struct {
	State   State  `json:"state"`
	Pending Action `json:"pendingAction,omitempty"`
	Message string `json:"message,omitempty"`
}

// Reconciler is the per (user, event) state machine. All transitions are
// serialized; the submitting guard ensures at most one mutating remote call
// is in flight at a time, extra confirms are ignored rather than queued.
type Reconciler struct {
	client  Client
	token   string
	eventID string

	mu       sync.Mutex
	state    State
	pending  Action
	prior    State // stable state to fall back to on cancel/failure
	inFlight bool
	message  string
}

func New(client Client, token, eventID string) *Reconciler {
	return &Reconciler{
		client:  client,
		token:   token,
		eventID: eventID,
		state:   StateUnknown,
	}
}

func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Status{State: r.state, Pending: r.pending, Message: r.message}
}

// Sync performs the initial remote lookup. Without a token the machine
// settles in unauthenticated without calling out. A failed check resolves to
// the stable unknown state, never stuck in checking.
func (r *Reconciler) Sync(ctx context.Context) Status {
	r.mu.Lock()

	if r.token == "" {
		r.state = StateUnauthenticated
		r.pending = ""
		r.mu.Unlock()
		return r.Status()
	}

	if r.inFlight || r.state == StateChecking || r.state == StatePending {
		r.mu.Unlock()
		return r.Status()
	}

	r.state = StateChecking
	r.mu.Unlock()

	registered, err := r.client.CheckRegistration(ctx, r.token, r.eventID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.state = StateUnknown
		r.message = err.Error()
		return Status{State: r.state, Message: r.message}
	}

	r.message = ""
	if registered {
		r.state = StateRegistered
	} else {
		r.state = StateNotRegistered
	}

	return Status{State: r.state}
}

// RequestAction is the user tapping the action control. From a stable state
// it arms the matching confirmation; anywhere else it is a no-op.
func (r *Reconciler) RequestAction() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateUnauthenticated:
		r.arm(ActionLogin)
	case StateNotRegistered:
		r.arm(ActionRegister)
	case StateRegistered:
		r.arm(ActionUnregister)
	}

	return Status{State: r.state, Pending: r.pending, Message: r.message}
}

func (r *Reconciler) arm(a Action) {
	r.prior = r.state
	r.state = StatePending
	r.pending = a
	r.message = ""
}

// Cancel returns to the prior stable state without any remote call.
func (r *Reconciler) Cancel() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StatePending {
		r.state = r.prior
		r.pending = ""
	}

	return Status{State: r.state, Pending: r.pending, Message: r.message}
}

// Confirm executes the armed action. A login confirmation never reaches the
// remote: the caller redirects to the auth entry point instead. While a
// mutation is in flight any further confirm is ignored, not queued.
func (r *Reconciler) Confirm(ctx context.Context) Status {
	r.mu.Lock()

	if r.state != StatePending || r.inFlight {
		defer r.mu.Unlock()
		return Status{State: r.state, Pending: r.pending, Message: r.message}
	}

	action := r.pending

	if action == ActionLogin {
		// stays pending until the caller completes the redirect flow
		r.mu.Unlock()
		return Status{State: StatePending, Pending: ActionLogin}
	}

	r.state = StateSubmitting
	r.pending = ""
	r.inFlight = true
	r.mu.Unlock()

	switch action {
	case ActionRegister:
		outcome, err := r.client.Register(ctx, r.token, r.eventID)

		r.mu.Lock()
		defer r.mu.Unlock()
		r.inFlight = false

		if err != nil {
			// revert, surface the failure inline
			r.state = r.prior
			r.message = err.Error()
			return Status{State: r.state, Message: r.message}
		}

		r.state = StateRegistered
		if outcome.Message != "" {
			r.message = outcome.Message
		} else if outcome.RequiresApproval {
			r.message = "Inscripción pendiente de aprobación"
		} else {
			r.message = "Inscripción confirmada"
		}
		return Status{State: r.state, Message: r.message}

	case ActionUnregister:
		err := r.client.Unregister(ctx, r.token, r.eventID)

		r.mu.Lock()
		defer r.mu.Unlock()
		r.inFlight = false

		if err != nil {
			// stay registered on failure
			r.state = StateRegistered
			r.message = err.Error()
			return Status{State: r.state, Message: r.message}
		}

		r.state = StateNotRegistered
		r.message = "Inscripción cancelada"
		return Status{State: r.state, Message: r.message}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false
	return Status{State: r.state, Pending: r.pending}
}

// settled reports whether the machine is in a stable state with no remote
// call in flight. Only settled reconcilers may be evicted from a Registry.
func (r *Reconciler) settled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight {
		return false
	}

	switch r.state {
	case StateChecking, StatePending, StateSubmitting:
		return false
	}

	return true
}

const defaultRegistryTTL = 30 * time.Minute

// Registry hands out one reconciler per (user, event) pair so the
// single-flight guard holds across concurrent requests from the same user.
// Reconcilers idle past TTL are evicted once settled, so the map does not
// grow with every (user, event) pair ever seen.
type Registry struct {
	client Client

	// TTL is the idle eviction threshold. Set it before the first For call.
	TTL time.Duration

	mu sync.Mutex
	m  map[string]*registryEntry
}

type registryEntry struct {
	rec      *Reconciler
	lastUsed time.Time
}

func NewRegistry(client Client) *Registry {
	return &Registry{
		client: client,
		TTL:    defaultRegistryTTL,
		m:      make(map[string]*registryEntry),
	}
}

func (g *Registry) For(userID, token, eventID string) *Reconciler {
	key := userID + "|" + eventID
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.evictIdle(now)

	if e, ok := g.m[key]; ok {
		e.lastUsed = now

		e.rec.mu.Lock()
		e.rec.token = token
		e.rec.mu.Unlock()

		return e.rec
	}

	r := New(g.client, token, eventID)
	g.m[key] = &registryEntry{rec: r, lastUsed: now}
	return r
}

// evictIdle drops reconcilers idle past the TTL. Entries mid-transition are
// kept regardless of age; they become evictable once they settle.
func (g *Registry) evictIdle(now time.Time) {
	for key, e := range g.m {
		if now.Sub(e.lastUsed) < g.TTL {
			continue
		}

		if e.rec.settled() {
			delete(g.m, key)
		}
	}
}
