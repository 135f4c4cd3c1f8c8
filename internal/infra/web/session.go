package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"energy-bubbles/internal/application"
	"energy-bubbles/internal/domain"
	"energy-bubbles/internal/loop"
	"energy-bubbles/internal/simulation"
)

var (
	ErrTooManySessions = errors.New("too many sessions")
	ErrUnknownSession  = errors.New("unknown session")
)

// SessionTelemetry is the telemetry a session manager reports to, in addition to the per-view counters.
type SessionTelemetry interface {
	application.Telemetry
	SessionOpened()
	SessionClosed()
}

type noopSessionTelemetry struct {
	application.NoopTelemetry
}

func (*noopSessionTelemetry) SessionOpened() {}
func (*noopSessionTelemetry) SessionClosed() {}

// mailbox keeps only the most recent snapshot. A slow reader skips intermediate frames.
type mailbox struct {
	mu     sync.Mutex
	latest domain.Snapshot
	fresh  bool
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) Publish(s domain.Snapshot) {
	m.mu.Lock()
	m.latest = s
	m.fresh = true
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() (domain.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fresh {
		return domain.Snapshot{}, false
	}
	m.fresh = false
	return m.latest, true
}

// Session is one mounted view running on its own event loop.
type Session struct {
	ID       string
	OpenedAt time.Time

	loop      *loop.EventLoop
	dashboard *application.Dashboard
	mailbox   *mailbox
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Updates is signalled whenever a new snapshot is waiting in Latest.
func (s *Session) Updates() <-chan struct{} { return s.mailbox.notify }

// Latest returns the newest unread snapshot.
func (s *Session) Latest() (domain.Snapshot, bool) { return s.mailbox.take() }

// Done is closed once the session's loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.loop.Done() }

func (s *Session) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.loop.Do(ctx, func() { snap = s.dashboard.Snapshot() })
	return snap, err
}

func (s *Session) Feed(ctx context.Context, device int) (time.Time, bool, error) {
	var (
		endsAt  time.Time
		started bool
		feedErr error
	)
	if err := s.loop.Do(ctx, func() { endsAt, started, feedErr = s.dashboard.Feed(device) }); err != nil {
		return time.Time{}, false, err
	}
	return endsAt, started, feedErr
}

func (s *Session) Drag(ctx context.Context, device int, x, y float64) error {
	var dragErr error
	if err := s.loop.Do(ctx, func() { dragErr = s.dashboard.Drag(device, x, y) }); err != nil {
		return err
	}
	return dragErr
}

func (s *Session) Release(ctx context.Context, device int) error {
	var releaseErr error
	if err := s.loop.Do(ctx, func() { releaseErr = s.dashboard.Release(device) }); err != nil {
		return err
	}
	return releaseErr
}

func (s *Session) Resize(ctx context.Context, width, height float64) error {
	return s.loop.Do(ctx, func() { s.dashboard.Resize(width, height) })
}

// Pending reports the timers still registered on the session's loop.
func (s *Session) Pending() int { return s.loop.Pending() }

// SessionManager creates and tracks views. Each view gets its own loop goroutine, random source and
// dashboard so views never share state.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	settings      application.Settings
	frameInterval time.Duration
	maxSessions   int
	newRand       func() simulation.Rand
	telemetry     SessionTelemetry
	logger        *slog.Logger
}

type ManagerOptions struct {
	Settings      application.Settings
	FrameInterval time.Duration
	// MaxSessions of zero means unlimited.
	MaxSessions int
	NewRand     func() simulation.Rand
	Telemetry   SessionTelemetry
	Logger      *slog.Logger
}

func NewSessionManager(opts ManagerOptions) *SessionManager {
	if opts.Telemetry == nil {
		opts.Telemetry = &noopSessionTelemetry{}
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = loop.DefaultFrameInterval
	}
	return &SessionManager{
		sessions:      make(map[string]*Session),
		settings:      opts.Settings,
		frameInterval: opts.FrameInterval,
		maxSessions:   opts.MaxSessions,
		newRand:       opts.NewRand,
		telemetry:     opts.Telemetry,
		logger:        opts.Logger,
	}
}

// Open mounts a new view sized to the given container.
func (m *SessionManager) Open(ctx context.Context, width, height float64) (*Session, error) {
	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	id := uuid.NewString()
	settings := m.settings
	settings.Layout.Width, settings.Layout.Height = width, height

	runCtx, cancel := context.WithCancel(context.Background())
	l := loop.NewEventLoop(m.frameInterval)
	box := newMailbox()
	s := &Session{
		ID:       id,
		OpenedAt: time.Now(),
		loop:     l,
		mailbox:  box,
		cancel:   cancel,
	}
	s.dashboard = application.NewDashboard(id, l, m.newRand(), settings, box, m.telemetry, m.logger)
	m.sessions[id] = s
	m.mu.Unlock()

	go func() {
		_ = l.Run(runCtx)
	}()

	var mountErr error
	if err := l.Do(ctx, func() { mountErr = s.dashboard.Mount() }); err != nil {
		mountErr = err
	}
	if mountErr != nil {
		m.remove(id)
		cancel()
		return nil, fmt.Errorf("mounting view: %w", mountErr)
	}

	m.telemetry.SessionOpened()
	return s, nil
}

// Get looks up a live session.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrUnknownSession)
	}
	return s, nil
}

// List returns the live sessions, oldest first.
func (m *SessionManager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close tears the view down on its loop, then stops the loop.
func (m *SessionManager) Close(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}

	var closeErr error
	s.closeOnce.Do(func() {
		closeErr = s.loop.Do(ctx, s.dashboard.Teardown)
		s.cancel()
		<-s.loop.Done()
		if closeErr != nil {
			// The loop is stopped, so nothing else touches the dashboard.
			s.dashboard.Teardown()
		}
		m.remove(id)
		m.telemetry.SessionClosed()
		m.logger.Debug("session closed", "session", id, "pending", s.loop.Pending())
	})
	return closeErr
}

// CloseAll tears every view down, typically during shutdown.
func (m *SessionManager) CloseAll(ctx context.Context) {
	for _, s := range m.List() {
		if err := m.Close(ctx, s.ID); err != nil && !errors.Is(err, ErrUnknownSession) {
			m.logger.Warn("closing session", "session", s.ID, "error", err)
		}
	}
}

func (m *SessionManager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
