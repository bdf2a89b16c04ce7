// Package supervisor runs at most one repeating send-message task per
// conversation and lets callers start, stop and inspect them.
//
// Tasks live only in memory. A process restart loses every task; operators
// re-issue their commands after a restart.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dayuer/tgpilot/internal/clock"
)

var (
	// ErrAlreadyRunning is returned by Start when the key is occupied under PolicyReject.
	ErrAlreadyRunning = errors.New("supervisor: task already running for this conversation")
	// ErrNotRunning is returned by Stop when the key has no task.
	ErrNotRunning = errors.New("supervisor: no task running for this conversation")
	// ErrInvalidInterval is returned by Start for intervals below the minimum.
	ErrInvalidInterval = errors.New("supervisor: interval too short")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("supervisor: closed")
)

// DefaultSendTimeout bounds a single emission.
const DefaultSendTimeout = 30 * time.Second

// Sender delivers one message to a conversation.
type Sender interface {
	Send(ctx context.Context, key int64, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, key int64, text string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, key int64, text string) error {
	return f(ctx, key, text)
}

// Policy decides what Start does when the key already has a task.
type Policy string

const (
	PolicyReject  Policy = "reject"  // Keep the running task, fail with ErrAlreadyRunning.
	PolicyReplace Policy = "replace" // Cancel the running task and start the new one.
)

// ParsePolicy maps a config string to a Policy. Empty means PolicyReject.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyReplace:
		return PolicyReplace, nil
	default:
		return "", fmt.Errorf("supervisor: unknown start policy %q", s)
	}
}

// TaskInfo is a point-in-time snapshot of a running task.
type TaskInfo struct {
	ID        string        `json:"id"`
	Key       int64         `json:"key"`
	Payload   string        `json:"payload"`
	Interval  time.Duration `json:"interval"`
	StartedAt time.Time     `json:"startedAt"`
	Sent      int64         `json:"sent"`
	Failures  int64         `json:"failures"`
}

type task struct {
	id        string
	key       int64
	payload   string
	interval  time.Duration
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	sent     atomic.Int64
	failures atomic.Int64
}

func (t *task) snapshot() TaskInfo {
	return TaskInfo{
		ID:        t.id,
		Key:       t.key,
		Payload:   t.payload,
		Interval:  t.interval,
		StartedAt: t.startedAt,
		Sent:      t.sent.Load(),
		Failures:  t.failures.Load(),
	}
}

// Supervisor owns the task table. All table reads and writes happen under mu.
type Supervisor struct {
	sender      Sender
	policy      Policy
	logger      *zap.Logger
	clock       clock.Clock
	sendTimeout time.Duration
	minInterval time.Duration

	mu     sync.Mutex
	tasks  map[int64]*task
	closed bool

	wg sync.WaitGroup
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithPolicy sets the start-while-running policy.
func WithPolicy(p Policy) Option {
	return func(s *Supervisor) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for StartedAt.
func WithClock(c clock.Clock) Option {
	return func(s *Supervisor) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSendTimeout bounds each emission. Zero or negative keeps the default.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

// WithMinInterval overrides the shortest accepted interval (default one second).
func WithMinInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.minInterval = d
		}
	}
}

// New creates a Supervisor that emits through sender.
func New(sender Sender, opts ...Option) *Supervisor {
	s := &Supervisor{
		sender:      sender,
		policy:      PolicyReject,
		logger:      zap.NewNop(),
		clock:       clock.System{},
		sendTimeout: DefaultSendTimeout,
		minInterval: time.Second,
		tasks:       make(map[int64]*task),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the configured start policy.
func (s *Supervisor) Policy() Policy {
	return s.policy
}

// Start registers a task for key and launches its loop. The first emission
// happens immediately, then one every interval.
func (s *Supervisor) Start(key int64, payload string, interval time.Duration) error {
	if interval < s.minInterval {
		return fmt.Errorf("%w: %s (minimum %s)", ErrInvalidInterval, interval, s.minInterval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if old, ok := s.tasks[key]; ok {
		if s.policy != PolicyReplace {
			return ErrAlreadyRunning
		}
		delete(s.tasks, key)
		old.cancel()
		s.logger.Info("Spam task replaced", zap.Int64("chat_id", key), zap.String("task_id", old.id))
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{
		id:        uuid.NewString(),
		key:       key,
		payload:   payload,
		interval:  interval,
		startedAt: s.clock.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.tasks[key] = t

	s.wg.Add(1)
	go s.run(t)

	s.logger.Info("Spam task started",
		zap.Int64("chat_id", key),
		zap.String("task_id", t.id),
		zap.Duration("interval", interval),
	)
	return nil
}

// Stop cancels and removes the task for key.
func (s *Supervisor) Stop(key int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[key]
	if !ok {
		return ErrNotRunning
	}
	delete(s.tasks, key)
	t.cancel()

	s.logger.Info("Spam task stopped", zap.Int64("chat_id", key), zap.String("task_id", t.id))
	return nil
}

// StopAll cancels and removes every task and returns how many there were.
func (s *Supervisor) StopAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopAllLocked()
}

func (s *Supervisor) stopAllLocked() int {
	n := len(s.tasks)
	for _, t := range s.tasks {
		t.cancel()
	}
	s.tasks = make(map[int64]*task)
	if n > 0 {
		s.logger.Info("All spam tasks stopped", zap.Int("count", n))
	}
	return n
}

// ActiveCount returns the number of registered tasks.
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Get returns a snapshot of the task for key.
func (s *Supervisor) Get(key int64) (TaskInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok {
		return TaskInfo{}, false
	}
	return t.snapshot(), true
}

// List returns snapshots of all tasks ordered by key.
func (s *Supervisor) List() []TaskInfo {
	s.mu.Lock()
	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.snapshot())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Close stops every task, rejects further Starts and waits for all task
// goroutines to return or ctx to expire.
func (s *Supervisor) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.stopAllLocked()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the task loop: emit, then wait for the interval or cancellation,
// whichever comes first.
func (s *Supervisor) run(t *task) {
	defer s.wg.Done()
	defer s.release(t)

	for {
		if t.ctx.Err() != nil {
			return
		}
		s.emit(t)

		wait := time.NewTimer(t.interval)
		select {
		case <-t.ctx.Done():
			wait.Stop()
			return
		case <-wait.C:
		}
	}
}

// emit performs one send. Failures are counted and logged; they never end the loop.
func (s *Supervisor) emit(t *task) {
	ctx, cancel := context.WithTimeout(t.ctx, s.sendTimeout)
	defer cancel()

	err := s.safeSend(ctx, t)
	if err == nil {
		t.sent.Add(1)
		return
	}
	if t.ctx.Err() != nil {
		return
	}
	n := t.failures.Add(1)
	s.logger.Warn("Spam send failed",
		zap.Int64("chat_id", t.key),
		zap.String("task_id", t.id),
		zap.Int64("failures", n),
		zap.Error(err),
	)
}

func (s *Supervisor) safeSend(ctx context.Context, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("supervisor: sender panic: %v", r)
		}
	}()
	return s.sender.Send(ctx, t.key, t.payload)
}

// release removes t from the table if it is still the registered task for its key.
func (s *Supervisor) release(t *task) {
	s.mu.Lock()
	if cur, ok := s.tasks[t.key]; ok && cur == t {
		delete(s.tasks, t.key)
	}
	s.mu.Unlock()
	t.cancel()
}
