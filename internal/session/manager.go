// Package session orchestrates one review pass over a generated queue:
// answer validation, scheduling, running statistics, pause/resume and the
// outward event stream.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
	"github.com/HelyeFab/moshimoshi-sub004/internal/repository"
	"github.com/HelyeFab/moshimoshi-sub004/internal/srs"
	"github.com/HelyeFab/moshimoshi-sub004/internal/validator"
)

var (
	// ErrSessionAlreadyActive rejects a second concurrent start for the same
	// user; sessions are single-writer per user by design.
	ErrSessionAlreadyActive = errors.New("session: user already has an active session")
	ErrNoActiveSession      = errors.New("session: no active session for user")
	ErrInvalidTransition    = errors.New("session: invalid state transition")
	ErrEmptyQueue           = errors.New("session: cannot start with an empty queue")
	ErrSessionFinished      = errors.New("session: session already finished")
)

// Persister is the durable write path the manager uses on every transition.
// Implemented by syncer.Writer.
type Persister interface {
	WriteSchedule(ctx context.Context, state *entities.ScheduleState) error
	WriteSession(ctx context.Context, session *entities.ReviewSession) error
}

// Invalidator drops cached queues after schedule mutations. Implemented by
// queue.Generator.
type Invalidator interface {
	InvalidateUser(userID string)
}

// Session is one live review pass. All mutation goes through the Manager.
type Session struct {
	state   *entities.ReviewSession
	content map[string]entities.ReviewableContent
	answers []answerRecord

	shownAt time.Time // when the current item was presented
	ctx     context.Context
	cancel  context.CancelFunc
}

type answerRecord struct {
	contentType entities.ContentType
	correct     bool
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.state.ID }

// rejectedFor collects the accepted answers of every other item in the
// session. Answering one item with another item's word is a mix-up, not a
// near miss, so typo tolerance must not rescue it.
func (s *Session) rejectedFor(itemID string) []string {
	var rejected []string
	for id, c := range s.content {
		if id == itemID {
			continue
		}
		rejected = append(rejected, c.AcceptedAnswers()...)
	}
	return rejected
}

// Context is cancelled when the session is abandoned; background work tied
// to the session (prefetch, queue regeneration) should run under it.
func (s *Session) Context() context.Context { return s.ctx }

// Current returns the content to present next, or false when exhausted.
func (s *Session) Current() (entities.ReviewableContent, bool) {
	item := s.state.Current()
	if item == nil {
		return entities.ReviewableContent{}, false
	}
	c, ok := s.content[item.ItemID]
	return c, ok
}

// Manager runs review sessions: at most one active session per user.
// Construct once at startup and pass by reference.
type Manager struct {
	validators  *validator.Set
	scheduler   *srs.Scheduler
	schedules   repository.ScheduleRepository
	persister   Persister
	invalidator Invalidator
	bus         *Bus
	logger      *zap.Logger

	mu     sync.Mutex
	active map[string]*Session // userID → session

	now func() time.Time
}

// NewManager wires a session manager.
func NewManager(
	validators *validator.Set,
	scheduler *srs.Scheduler,
	schedules repository.ScheduleRepository,
	persister Persister,
	invalidator Invalidator,
	bus *Bus,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		validators:  validators,
		scheduler:   scheduler,
		schedules:   schedules,
		persister:   persister,
		invalidator: invalidator,
		bus:         bus,
		logger:      logger,
		active:      make(map[string]*Session),
		now:         time.Now,
	}
}

// Bus exposes the event stream for subscribers.
func (m *Manager) Bus() *Bus { return m.bus }

// Start begins a session over the given content in queue order. The queue
// snapshot may be nil, in which case it is derived from the content list.
func (m *Manager) Start(ctx context.Context, userID string, mode entities.ReviewMode, contents []entities.ReviewableContent, queue []entities.QueueItem) (*Session, error) {
	if len(contents) == 0 {
		return nil, ErrEmptyQueue
	}

	byID := make(map[string]entities.ReviewableContent, len(contents))
	for _, c := range contents {
		byID[c.ID] = c
	}

	if queue == nil {
		queue = make([]entities.QueueItem, 0, len(contents))
		for _, c := range contents {
			queue = append(queue, entities.QueueItem{ItemID: c.ID, ContentType: c.ContentType})
		}
	}
	for _, q := range queue {
		if _, ok := byID[q.ItemID]; !ok {
			return nil, fmt.Errorf("session: queue item %s has no content", q.ItemID)
		}
	}

	now := m.now()
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess := &Session{
		state:   entities.NewReviewSession(userID, mode, queue, now),
		content: byID,
		shownAt: now,
		ctx:     sctx,
		cancel:  cancel,
	}

	m.mu.Lock()
	if existing, ok := m.active[userID]; ok && isLive(existing.state.Status) {
		m.mu.Unlock()
		cancel()
		return nil, ErrSessionAlreadyActive
	}
	m.active[userID] = sess
	m.mu.Unlock()

	if err := m.persister.WriteSession(ctx, sess.state); err != nil {
		m.dropSession(userID)
		cancel()
		return nil, fmt.Errorf("persist session start: %w", err)
	}

	m.logger.Info("session started",
		zap.String("user_id", userID),
		zap.String("session_id", sess.state.ID),
		zap.String("mode", string(mode)),
		zap.Int("queue_size", len(queue)),
	)
	return sess, nil
}

func isLive(status entities.SessionStatus) bool {
	return status == entities.SessionActive || status == entities.SessionPaused
}

func (m *Manager) lookup(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.active[userID]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return sess, nil
}

func (m *Manager) dropSession(userID string) {
	m.mu.Lock()
	delete(m.active, userID)
	m.mu.Unlock()
}

// SubmitAnswer grades the current item, reschedules it, and advances the
// session. The updated schedule and session state are durably persisted
// before the cursor moves, so a crash never loses a completed grading.
func (m *Manager) SubmitAnswer(ctx context.Context, userID, answer string, confidence entities.Confidence) (entities.ValidationResult, error) {
	sess, err := m.lookup(userID)
	if err != nil {
		return entities.ValidationResult{}, err
	}
	if sess.state.Status != entities.SessionActive {
		return entities.ValidationResult{}, fmt.Errorf("%w: status %s", ErrInvalidTransition, sess.state.Status)
	}

	item := sess.state.Current()
	if item == nil {
		return entities.ValidationResult{}, ErrSessionFinished
	}
	content := sess.content[item.ItemID]

	result, err := m.validators.Validate(content.ContentType, answer, content.AcceptedAnswers(), validator.Context{
		Mode:            sess.state.Mode,
		RejectedAnswers: sess.rejectedFor(item.ItemID),
		Metadata:        content.Metadata,
	})
	if err != nil {
		return entities.ValidationResult{}, err
	}

	now := m.now()
	grade := entities.GradeFrom(result.Correct, result.NearMiss, confidence)

	state, err := m.schedules.Get(ctx, userID, item.ItemID)
	if errors.Is(err, repository.ErrScheduleNotFound) {
		state = m.scheduler.NewState(userID, item.ItemID, content.ContentType, now)
	} else if err != nil {
		return entities.ValidationResult{}, fmt.Errorf("load schedule: %w", err)
	}

	next := m.scheduler.Process(*state, grade, now)

	// Durability precedes advancement.
	if err := m.persister.WriteSchedule(ctx, &next); err != nil {
		return entities.ValidationResult{}, fmt.Errorf("persist schedule: %w", err)
	}
	m.invalidator.InvalidateUser(userID)

	sess.state.Statistics.RecordAnswer(result.Correct, now.Sub(sess.shownAt))
	sess.answers = append(sess.answers, answerRecord{contentType: content.ContentType, correct: result.Correct})
	sess.state.CurrentIndex++
	sess.shownAt = now

	if err := m.persister.WriteSession(ctx, sess.state); err != nil {
		return entities.ValidationResult{}, fmt.Errorf("persist session: %w", err)
	}

	m.bus.Publish(entities.SessionEvent{
		Type:      entities.EventItemAnswered,
		SessionID: sess.state.ID,
		UserID:    userID,
		ItemID:    item.ItemID,
		Correct:   result.Correct,
		At:        now,
	})

	if sess.state.Remaining() == 0 {
		if _, err := m.complete(ctx, sess); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Skip advances past the current item without grading it.
func (m *Manager) Skip(ctx context.Context, userID string) error {
	sess, err := m.lookup(userID)
	if err != nil {
		return err
	}
	if sess.state.Status != entities.SessionActive {
		return fmt.Errorf("%w: status %s", ErrInvalidTransition, sess.state.Status)
	}
	if sess.state.Current() == nil {
		return ErrSessionFinished
	}

	sess.state.Statistics.Skipped++
	sess.state.CurrentIndex++
	sess.shownAt = m.now()

	if err := m.persister.WriteSession(ctx, sess.state); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if sess.state.Remaining() == 0 {
		_, err := m.complete(ctx, sess)
		return err
	}
	return nil
}

// Pause suspends an active session.
func (m *Manager) Pause(ctx context.Context, userID string) error {
	sess, err := m.lookup(userID)
	if err != nil {
		return err
	}
	if sess.state.Status != entities.SessionActive {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, sess.state.Status)
	}
	sess.state.Status = entities.SessionPaused
	return m.persister.WriteSession(ctx, sess.state)
}

// Resume reactivates a paused session. The response timer restarts so pause
// time is not billed to the current item.
func (m *Manager) Resume(ctx context.Context, userID string) error {
	sess, err := m.lookup(userID)
	if err != nil {
		return err
	}
	if sess.state.Status != entities.SessionPaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, sess.state.Status)
	}
	sess.state.Status = entities.SessionActive
	sess.shownAt = m.now()
	return m.persister.WriteSession(ctx, sess.state)
}

// Complete finishes the session early and returns its summary.
func (m *Manager) Complete(ctx context.Context, userID string) (*entities.SessionSummary, error) {
	sess, err := m.lookup(userID)
	if err != nil {
		return nil, err
	}
	if !isLive(sess.state.Status) {
		return nil, fmt.Errorf("%w: complete from %s", ErrInvalidTransition, sess.state.Status)
	}
	return m.complete(ctx, sess)
}

func (m *Manager) complete(ctx context.Context, sess *Session) (*entities.SessionSummary, error) {
	now := m.now()
	sess.state.Complete(now)
	sess.cancel()

	if err := m.persister.WriteSession(ctx, sess.state); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	m.dropSession(sess.state.UserID)

	summary := m.summarize(sess, now)
	m.bus.Publish(entities.SessionEvent{
		Type:      entities.EventSessionCompleted,
		SessionID: sess.state.ID,
		UserID:    sess.state.UserID,
		Summary:   summary,
		At:        now,
	})

	m.logger.Info("session completed",
		zap.String("user_id", sess.state.UserID),
		zap.String("session_id", sess.state.ID),
		zap.Float64("accuracy", summary.Accuracy),
	)
	return summary, nil
}

// Abandon cancels the session. In-flight background work for the session is
// stopped via its context; already-enqueued sync entries are left alone.
func (m *Manager) Abandon(ctx context.Context, userID string) error {
	sess, err := m.lookup(userID)
	if err != nil {
		return err
	}
	if !isLive(sess.state.Status) {
		return fmt.Errorf("%w: abandon from %s", ErrInvalidTransition, sess.state.Status)
	}

	sess.state.Status = entities.SessionAbandoned
	sess.cancel()
	m.dropSession(userID)

	if err := m.persister.WriteSession(ctx, sess.state); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.logger.Info("session abandoned",
		zap.String("user_id", userID),
		zap.String("session_id", sess.state.ID),
	)
	return nil
}

func (m *Manager) summarize(sess *Session, now time.Time) *entities.SessionSummary {
	st := sess.state.Statistics
	summary := &entities.SessionSummary{
		SessionID:     sess.state.ID,
		UserID:        sess.state.UserID,
		Mode:          sess.state.Mode,
		TotalItems:    len(sess.state.Queue),
		Correct:       st.Correct,
		Incorrect:     st.Incorrect,
		Skipped:       st.Skipped,
		BestStreak:    st.BestStreak,
		ByContentType: make(map[entities.ContentType]entities.TypeBreakdown),
		Duration:      now.Sub(sess.state.StartedAt),
	}
	if answered := st.Answered(); answered > 0 {
		summary.Accuracy = float64(st.Correct) / float64(answered)
		summary.AvgResponseTimeMS = st.TotalTimeMS / int64(answered)
	}

	for _, a := range sess.answers {
		b := summary.ByContentType[a.contentType]
		b.Total++
		if a.correct {
			b.Correct++
		}
		summary.ByContentType[a.contentType] = b
	}
	return summary
}
