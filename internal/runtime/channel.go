package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the channel's position in its lifecycle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateBusy          State = "busy"
	StateError         State = "error"
)

// SessionStatus records how an outstanding request ended.
type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusResolved  SessionStatus = "resolved"
	StatusRejected  SessionStatus = "rejected"
	StatusTimedOut  SessionStatus = "timed_out"
	StatusCancelled SessionStatus = "cancelled"
)

// Default deadlines for worker round trips. Validation runs get a
// tighter budget than general execution.
const (
	DefaultInitTimeout       = 60 * time.Second
	DefaultExecTimeout       = 30 * time.Second
	DefaultValidationTimeout = 15 * time.Second
)

// ExecResult is the outcome of a successful run request.
type ExecResult struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// session tracks one outstanding request against the worker. It is
// created per round trip and destroyed when the call resolves, times
// out or is cancelled.
type session struct {
	id        string
	kind      RequestType
	startedAt time.Time
	deadline  time.Time
	status    SessionStatus
	reply     chan Reply
}

// Channel is the request/response correlator over the asynchronous
// link to one isolated worker. Only one request may be outstanding at
// a time; a run or install issued while the channel is busy is
// rejected outright rather than queued, which keeps timeout semantics
// unambiguous. Every request carries a correlation id, so a reply
// arriving after its call timed out is discarded instead of satisfying
// a later, unrelated call.
type Channel struct {
	transport Transport
	packages  *PackageSet
	log       zerolog.Logger

	mu      sync.Mutex
	state   State
	pending map[string]*session
	closed  bool
	done    chan struct{}
}

// NewChannel wraps a transport. The package set may be nil; when given
// it is reset on every successful init, since installed packages are a
// property of the worker instance.
func NewChannel(transport Transport, packages *PackageSet, log zerolog.Logger) *Channel {
	c := &Channel{
		transport: transport,
		packages:  packages,
		log:       log,
		state:     StateUninitialized,
		pending:   make(map[string]*session),
		done:      make(chan struct{}),
	}
	go c.dispatch()
	return c
}

// State returns the channel's current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Init performs the init round trip and moves the channel to Ready.
// Re-initialising an errored or ready channel is allowed; the package
// set is reset because a fresh worker has nothing installed.
func (c *Channel) Init(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	reply, err := c.roundTrip(ctx, Request{ID: uuid.NewString(), Type: RequestInit}, timeout)
	if err != nil {
		return err
	}
	if reply.Type != ReplyReady {
		return fmt.Errorf("worker failed to initialise: %s", reply.Error)
	}
	if c.packages != nil {
		c.packages.Reset()
	}
	c.log.Info().Msg("runtime ready")
	return nil
}

// Run executes code in the worker, optionally materialising files into
// its scratch directory first. A zero timeout selects the default. A
// worker-reported execution error comes back as *Fault; the channel
// itself returns to Ready either way.
func (c *Channel) Run(ctx context.Context, code string, files []SeedFile, timeout time.Duration) (*ExecResult, error) {
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	req := Request{ID: uuid.NewString(), Type: RequestRun, Code: code, Files: files}
	reply, err := c.roundTrip(ctx, req, timeout)
	if err != nil {
		return nil, err
	}
	if reply.Type == ReplyError {
		return nil, &Fault{Message: reply.Error}
	}
	return &ExecResult{
		Stdout:   reply.Stdout,
		Stderr:   reply.Stderr,
		Duration: time.Duration(reply.ExecutionTime * float64(time.Millisecond)),
	}, nil
}

// Install asks the worker to install a package and returns the
// worker's acknowledgement message. Deduplication against the package
// set is the caller's concern; the channel always dispatches.
func (c *Channel) Install(ctx context.Context, packageName string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	req := Request{ID: uuid.NewString(), Type: RequestInstall, PackageName: packageName}
	reply, err := c.roundTrip(ctx, req, timeout)
	if err != nil {
		return "", err
	}
	if reply.Type == ReplyError {
		return "", &Fault{Message: reply.Error}
	}
	return reply.Message, nil
}

// Close tears down the transport and rejects any outstanding session:
// a caller blocked in a round trip returns ErrChannelClosed.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateUninitialized
	close(c.done)
	c.mu.Unlock()
	return c.transport.Close()
}

// roundTrip enforces the state machine, sends one request and waits
// for its correlated reply, the timeout or context cancellation.
func (c *Channel) roundTrip(ctx context.Context, req Request, timeout time.Duration) (Reply, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Reply{}, ErrChannelClosed
	}
	if req.Type == RequestInit {
		if c.state == StateBusy || c.state == StateInitializing {
			c.mu.Unlock()
			return Reply{}, ErrChannelBusy
		}
		c.state = StateInitializing
	} else {
		switch c.state {
		case StateReady:
			c.state = StateBusy
		case StateBusy, StateInitializing:
			c.mu.Unlock()
			return Reply{}, ErrChannelBusy
		default:
			state := c.state
			c.mu.Unlock()
			return Reply{}, fmt.Errorf("%w (state: %s)", ErrChannelNotReady, state)
		}
	}
	now := time.Now()
	s := &session{
		id:        req.ID,
		kind:      req.Type,
		startedAt: now,
		deadline:  now.Add(timeout),
		status:    StatusPending,
		reply:     make(chan Reply, 1),
	}
	c.pending[req.ID] = s
	c.mu.Unlock()

	if err := c.transport.Send(req); err != nil {
		c.finish(s, StatusRejected, StateError)
		return Reply{}, fmt.Errorf("failed to send %s request: %w", req.Type, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-s.reply:
		next := StateReady
		if req.Type == RequestInit && reply.Type != ReplyReady {
			next = StateError
		}
		c.finish(s, StatusResolved, next)
		return reply, nil
	case <-timer.C:
		// The worker may still answer later; the dispatch loop will
		// drop that reply because the session is gone.
		c.finish(s, StatusTimedOut, c.stateAfterAbort(req.Type))
		c.log.Warn().
			Str("request_id", req.ID).
			Str("type", string(req.Type)).
			Dur("timeout", timeout).
			Msg("runtime request timed out")
		return Reply{}, fmt.Errorf("%s request after %s: %w", req.Type, timeout, ErrTimeout)
	case <-ctx.Done():
		c.finish(s, StatusCancelled, c.stateAfterAbort(req.Type))
		return Reply{}, ctx.Err()
	case <-c.done:
		c.finish(s, StatusRejected, StateUninitialized)
		return Reply{}, ErrChannelClosed
	}
}

// stateAfterAbort picks the state a timed-out or cancelled call leaves
// behind. Correlation ids make it safe to accept new work immediately
// after an aborted run or install; an aborted init leaves the worker
// in an unknown state, so the channel stays in Error until re-init.
func (c *Channel) stateAfterAbort(kind RequestType) State {
	if kind == RequestInit {
		return StateError
	}
	return StateReady
}

func (c *Channel) finish(s *session, status SessionStatus, next State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.status = status
	delete(c.pending, s.id)
	if !c.closed {
		c.state = next
	}
}

// dispatch routes worker replies to their waiting sessions. Replies
// whose id matches no pending session are stale (their call already
// timed out or was cancelled) and are logged and dropped.
func (c *Channel) dispatch() {
	for reply := range c.transport.Replies() {
		c.mu.Lock()
		s, ok := c.pending[reply.ID]
		if ok && s.status == StatusPending {
			delete(c.pending, reply.ID)
			c.mu.Unlock()
			s.reply <- reply
			continue
		}
		c.mu.Unlock()
		c.log.Debug().
			Str("request_id", reply.ID).
			Str("type", string(reply.Type)).
			Msg("discarding stale runtime reply")
	}
}
