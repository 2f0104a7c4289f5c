// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/metrics"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/storage"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/stream"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the overall state of the store.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusStreaming Status = "streaming"
	StatusError     Status = "error"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrLoadSuperseded is returned by a load whose result was discarded
	// because the active conversation changed while it was in flight.
	ErrLoadSuperseded = errors.New("load superseded by a conversation change")

	// ErrNotFound is returned when an interaction is not held by the store.
	ErrNotFound = errors.New("interaction not found")

	// ErrNoConversation is returned when an operation needs an active conversation.
	ErrNoConversation = errors.New("no active conversation")

	// ErrInvalid wraps validation failures of added interactions.
	ErrInvalid = errors.New("invalid interaction")

	// ErrNotLoaded is returned when a new interaction is requested before the
	// active conversation's history has been loaded successfully. Indexes are
	// only known after a load.
	ErrNotLoaded = errors.New("active conversation not loaded")
)

// =============================================================================
// STORE
// =============================================================================

type outgoing struct {
	name    events.Name
	payload any
}

// Store holds the active conversation's interactions. It is safe for
// concurrent use.
type Store struct {
	mu sync.Mutex

	gateway storage.Gateway
	bus     *events.Bus
	buffers *stream.Accumulator
	log     zerolog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time

	conversationID string
	interactions   []*interaction.Interaction
	streaming      map[string]struct{}
	status         Status
	lastErr        string
	loading        bool
	loadGen        uint64
	loaded         bool

	// unsaved holds IDs whose latest save failed. Their in-memory copy wins
	// over the persisted one on reload.
	unsaved map[string]struct{}

	// nextIndex is one past the highest index seen for the conversation, so
	// indexes are never reused even after Clear
	nextIndex int

	outbox   []outgoing
	draining bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock overrides the time source used for StartedAt/EndedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTracer overrides the tracer used around gateway calls.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) { s.tracer = t }
}

// WithAccumulator shares an existing accumulator.
func WithAccumulator(acc *stream.Accumulator) Option {
	return func(s *Store) { s.buffers = acc }
}

// New creates an idle store with no active conversation.
func New(gateway storage.Gateway, bus *events.Bus, opts ...Option) *Store {
	s := &Store{
		gateway:   gateway,
		bus:       bus,
		buffers:   stream.NewAccumulator(),
		log:       zerolog.Nop(),
		tracer:    otel.Tracer("github.com/DimitriGilbert/LiteChat-sub000/internal/store"),
		now:       time.Now,
		streaming: make(map[string]struct{}),
		unsaved:   make(map[string]struct{}),
		status:    StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = events.Default()
	}
	return s
}

// Bus returns the bus the store publishes on.
func (s *Store) Bus() *events.Bus { return s.bus }

// =============================================================================
// QUERIES
// =============================================================================

// State is a consistent copy of the store's state.
type State struct {
	ConversationID string
	Interactions   []*interaction.Interaction
	StreamingIDs   []string
	Status         Status
	Error          string
}

// Snapshot returns a copy of the whole state taken under one lock.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ConversationID: s.conversationID,
		Interactions:   interaction.CloneAll(s.interactions),
		StreamingIDs:   s.streamingIDsLocked(),
		Status:         s.status,
		Error:          s.lastErr,
	}
}

// ConversationID returns the active conversation, "" when none.
func (s *Store) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Interactions returns copies of the held interactions ordered by index.
func (s *Store) Interactions() []*interaction.Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return interaction.CloneAll(s.interactions)
}

// Get returns a copy of one interaction.
func (s *Store) Get(id string) (*interaction.Interaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it := s.findLocked(id); it != nil {
		return it.Clone(), true
	}
	return nil, false
}

// StreamingIDs returns the streaming set, sorted.
func (s *Store) StreamingIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamingIDsLocked()
}

// IsStreaming reports whether id is in the streaming set.
func (s *Store) IsStreaming(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.streaming[id]
	return ok
}

// Status returns the overall status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Error returns the recorded error, "" when none.
func (s *Store) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Buffer returns the streamed text of a streaming interaction.
func (s *Store) Buffer(id string) (string, bool) {
	return s.buffers.Text(id)
}

// ReasoningBuffer returns the streamed reasoning of a streaming interaction.
func (s *Store) ReasoningBuffer(id string) (string, bool) {
	return s.buffers.Reasoning(id)
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Store) findLocked(id string) *interaction.Interaction {
	for _, it := range s.interactions {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (s *Store) streamingIDsLocked() []string {
	ids := make([]string, 0, len(s.streaming))
	for id := range s.streaming {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// emit queues an event. Caller holds s.mu.
func (s *Store) emit(name events.Name, payload any) {
	s.outbox = append(s.outbox, outgoing{name: name, payload: payload})
}

// unlock releases s.mu and delivers queued events. Only one goroutine
// delivers at a time; events queued by others (or by handlers re-entering
// the store) are delivered by it in queue order.
func (s *Store) unlock() {
	if s.draining || len(s.outbox) == 0 {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.outbox) > 0 {
		ev := s.outbox[0]
		s.outbox[0] = outgoing{}
		s.outbox = s.outbox[1:]
		s.mu.Unlock()

		s.bus.Publish(ev.name, ev.payload)

		s.mu.Lock()
	}
	s.outbox = nil
	s.draining = false
	s.mu.Unlock()
}

// rejectLocked logs an operation ignored by the conversation guard.
func (s *Store) rejectLocked(op, id, reason string) {
	s.metrics.GuardRejected(op)
	s.log.Warn().
		Str("op", op).
		Str("interaction_id", id).
		Str("active_conversation", s.conversationID).
		Msg(reason)
}
