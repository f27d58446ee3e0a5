// Package app owns the live Hub clock and the edit workflow around it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/hubclock/internal/domain"
	"github.com/aelexs/hubclock/internal/editor"
	"github.com/aelexs/hubclock/internal/hubtime"
	"github.com/aelexs/hubclock/internal/observability"
)

var tracer = otel.Tracer("hubclock/app")

var (
	tickulesAdvancedTotal metric.Int64Counter
	cycleRolloversTotal   metric.Int64Counter
	editSessionsTotal     metric.Int64Counter
	fieldRejectionsTotal  metric.Int64Counter
)

func init() {
	m := otel.Meter("hubclock/app")

	tickulesAdvancedTotal, _ = m.Int64Counter("clock_tickules_advanced_total",
		metric.WithDescription("Total tickules advanced by the driver"))
	cycleRolloversTotal, _ = m.Int64Counter("clock_cycle_rollovers_total",
		metric.WithDescription("Total carries into a new cycle"))
	editSessionsTotal, _ = m.Int64Counter("edit_sessions_total",
		metric.WithDescription("Total edit sessions by outcome"))
	fieldRejectionsTotal, _ = m.Int64Counter("edit_field_rejections_total",
		metric.WithDescription("Total rejected field inputs"))
}

// Listener is notified with a copy of the live clock after it changes.
type Listener func(hubtime.Time)

// ServiceConfig holds the dependencies for Service.
type ServiceConfig struct {
	Initial hubtime.Time
	Logger  *slog.Logger
}

// Service is the single owner of the live clock. The driver and the console
// run on different goroutines, so every read and write goes through mu.
// At most one edit session is open at a time.
type Service struct {
	mu        sync.Mutex
	live      hubtime.Time
	session   *editor.Session
	listeners map[int]Listener
	nextID    int
	logger    *slog.Logger
}

// NewService creates a Service starting from cfg.Initial.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		live:      cfg.Initial,
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// Snapshot returns a copy of the live clock.
func (s *Service) Snapshot() hubtime.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Advance moves the live clock forward one tickule. The live clock is
// read-only while an edit session is open.
func (s *Service) Advance(ctx context.Context) error {
	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		return domain.ErrEditInProgress
	}
	rolled := s.live.Advance()
	now := s.live
	s.mu.Unlock()

	tickulesAdvancedTotal.Add(ctx, 1)
	if rolled {
		cycleRolloversTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("source", "advance")))
		s.logger.InfoContext(ctx, "clock.rollover", "cycle", now.Cycle())
	}
	s.notify(now)
	return nil
}

// SetTotalElapsed applies hubtime.Time.SetTotalElapsed to the live clock,
// carrying whole cycles into the cycle number. It is refused while an edit
// session is open.
func (s *Service) SetTotalElapsed(ctx context.Context, tickules int) error {
	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		return domain.ErrEditInProgress
	}
	before := s.live.Cycle()
	s.live.SetTotalElapsed(tickules)
	now := s.live
	s.mu.Unlock()

	if carried := now.Cycle() - before; carried > 0 {
		cycleRolloversTotal.Add(ctx, int64(carried), metric.WithAttributes(attribute.String("source", "total")))
	}
	s.logger.InfoContext(ctx, "clock.set_total",
		"tickules", tickules,
		"cycle", now.Cycle(),
		"elapsed", now.Elapsed(),
	)
	s.notify(now)
	return nil
}

// BeginEdit opens an edit session on a draft copy of the live clock.
func (s *Service) BeginEdit(ctx context.Context) (*editor.Session, error) {
	ctx, span := tracer.Start(ctx, "edit.begin")
	defer span.End()

	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		span.SetStatus(codes.Error, domain.ErrEditInProgress.Error())
		return nil, domain.ErrEditInProgress
	}
	sess := editor.NewSession(s.live)
	s.session = sess
	s.mu.Unlock()

	span.SetAttributes(attribute.String("session_id", sess.ID()))
	observability.WithTraceID(ctx, s.logger).InfoContext(ctx, "edit.begin", "session_id", sess.ID())
	return sess, nil
}

// Session returns the open edit session, or nil.
func (s *Service) Session() *editor.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// EditField feeds input text into a field of the open session and reports
// the field's validity.
func (s *Service) EditField(ctx context.Context, sess *editor.Session, name domain.FieldName, text string) (bool, error) {
	if err := s.checkOpen(sess); err != nil {
		return false, err
	}
	valid, err := sess.Set(name, text)
	if err != nil {
		return false, err
	}
	if !valid {
		fieldRejectionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("field", string(name))))
		s.logger.DebugContext(ctx, "edit.field_rejected",
			"session_id", sess.ID(),
			"field", string(name),
		)
	}
	return valid, nil
}

// EditPrecision sets the precision of the open session's draft.
func (s *Service) EditPrecision(sess *editor.Session, precision int) error {
	if err := s.checkOpen(sess); err != nil {
		return err
	}
	return sess.SetPrecision(precision)
}

// Commit replaces the live clock with the session's draft in one step. A
// draft with invalid fields is refused and the session stays open.
func (s *Service) Commit(ctx context.Context, sess *editor.Session) error {
	ctx, span := tracer.Start(ctx, "edit.commit")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	s.mu.Lock()
	if err := s.checkOpenLocked(sess); err != nil {
		s.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if invalid := sess.InvalidFields(); len(invalid) > 0 {
		s.mu.Unlock()
		editSessionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))
		err := fmt.Errorf("%w: %v", domain.ErrInvalidDraft, invalid)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	_ = sess.Close()
	s.live = sess.Draft()
	s.session = nil
	now := s.live
	s.mu.Unlock()

	editSessionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "committed")))
	logger.InfoContext(ctx, "edit.commit",
		"session_id", sess.ID(),
		"clock", now,
	)
	s.notify(now)
	return nil
}

// Cancel discards the session's draft. The live clock is untouched.
func (s *Service) Cancel(ctx context.Context, sess *editor.Session) error {
	ctx, span := tracer.Start(ctx, "edit.cancel")
	defer span.End()

	s.mu.Lock()
	if err := s.checkOpenLocked(sess); err != nil {
		s.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	_ = sess.Close()
	s.session = nil
	s.mu.Unlock()

	editSessionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "cancelled")))
	observability.WithTraceID(ctx, s.logger).InfoContext(ctx, "edit.cancel", "session_id", sess.ID())
	return nil
}

// Subscribe registers l for change notifications. Listeners run on the
// goroutine that made the change, after the service lock is released, and
// must not block. The returned func unregisters l.
func (s *Service) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) notify(now hubtime.Time) {
	s.mu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(now)
	}
}

func (s *Service) checkOpen(sess *editor.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkOpenLocked(sess)
}

func (s *Service) checkOpenLocked(sess *editor.Session) error {
	switch {
	case sess == nil:
		return domain.ErrNoEditSession
	case sess.Closed():
		return domain.ErrSessionClosed
	case sess != s.session:
		return domain.ErrNoEditSession
	}
	return nil
}
