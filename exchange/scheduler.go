// Package exchange runs recurring resource exchange agreements. Each due
// agreement notifies both participants and moves its due time forward by one
// calendar period counted from the previous due time, so a late tick does
// not shift the schedule.
package exchange

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradecore/dispatch"
	"tradecore/logging"
	"tradecore/model"
	"tradecore/protocol"
)

// DefaultInterval is how often the scheduler checks for due agreements.
const DefaultInterval = 60 * time.Second

// NodeResolver looks nodes up by id.
type NodeResolver interface {
	Get(id string) (model.Node, error)
}

// Enqueuer schedules a message for delayed delivery.
type Enqueuer interface {
	Enqueue(origin, destination string, payload protocol.Payload) (dispatch.Message, error)
}

// EventEmitter is notified of agreement activity.
type EventEmitter interface {
	EmitAgreementRegistered(a model.Agreement)
	EmitAgreementFired(a model.Agreement, firedAt time.Time)
	EmitAgreementCancelled(agreementID string)
}

// Scheduler owns the agreement list.
type Scheduler struct {
	mu       sync.Mutex
	repo     model.Repository[model.Agreement]
	nodes    NodeResolver
	enqueuer Enqueuer
	emitter  EventEmitter
	log      *zap.SugaredLogger
	clock    atomic.Pointer[func() time.Time]

	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler. A non-positive interval uses DefaultInterval.
func NewScheduler(repo model.Repository[model.Agreement], nodes NodeResolver, enqueuer Enqueuer, emitter EventEmitter, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{
		repo:     repo,
		nodes:    nodes,
		enqueuer: enqueuer,
		emitter:  emitter,
		log:      logging.Named(log, "exchange"),
		interval: interval,
		stopChan: make(chan struct{}),
	}
	s.SetClock(time.Now)
	return s
}

// SetClock replaces the time source. Safe to call while the component runs.
func (s *Scheduler) SetClock(now func() time.Time) { s.clock.Store(&now) }

func (s *Scheduler) now() time.Time { return (*s.clock.Load())() }

// Register validates and stores a new agreement. The caller supplies the
// first due time; id, active flag and bookkeeping are filled in here.
func (s *Scheduler) Register(a model.Agreement) (model.Agreement, error) {
	if err := s.validate(a); err != nil {
		return model.Agreement{}, err
	}
	a.ID = uuid.New().String()
	a.Active = true
	a.FireCount = 0
	a.LastFired = nil
	a.AckCount = 0
	a.LastAckAt = nil
	a.CreatedAt = s.now().UTC()

	if err := s.save(a); err != nil {
		return model.Agreement{}, fmt.Errorf("register agreement: %w", err)
	}

	s.log.Infof("agreement %s registered: %s <-> %s, %g %s @ %g %s, first due %s",
		a.ID, a.NodeA, a.NodeB, a.Volume, a.Resource, a.Rate, a.Frequency, a.NextDue.Format(time.RFC3339))
	if s.emitter != nil {
		s.emitter.EmitAgreementRegistered(a.Clone())
	}
	return a, nil
}

func (s *Scheduler) validate(a model.Agreement) error {
	if _, err := s.nodes.Get(a.NodeA); err != nil {
		return err
	}
	if _, err := s.nodes.Get(a.NodeB); err != nil {
		return err
	}
	switch {
	case a.NodeA == a.NodeB:
		return &model.InvalidAgreementError{Reason: "participants must differ"}
	case a.Resource == "":
		return &model.InvalidAgreementError{Reason: "resource is required"}
	case !(a.Rate > 0):
		return &model.InvalidAgreementError{Reason: "rate must be positive"}
	case !(a.Volume > 0):
		return &model.InvalidAgreementError{Reason: "volume must be positive"}
	case !a.Frequency.Valid():
		return &model.InvalidAgreementError{Reason: fmt.Sprintf("unknown frequency %q", a.Frequency)}
	case a.NextDue.IsZero():
		return &model.InvalidAgreementError{Reason: "next due time is required"}
	}
	return nil
}

// Get returns the agreement with the given id.
func (s *Scheduler) Get(id string) (model.Agreement, error) {
	a, err := s.repo.FindByID(id)
	if err != nil {
		return model.Agreement{}, fmt.Errorf("agreement %s: %w", id, err)
	}
	return a, nil
}

// List returns every agreement, cancelled ones included.
func (s *Scheduler) List() ([]model.Agreement, error) {
	return s.repo.FindAll()
}

// Count returns the number of registered agreements.
func (s *Scheduler) Count() (int, error) {
	all, err := s.repo.FindAll()
	return len(all), err
}

// Cancel stops an agreement from firing. It stays on record.
func (s *Scheduler) Cancel(id string) error {
	changed, err := s.deactivate(id)
	if err != nil {
		return fmt.Errorf("cancel %s: %w", id, err)
	}
	if !changed {
		return nil
	}

	s.log.Infof("agreement %s cancelled", id)
	if s.emitter != nil {
		s.emitter.EmitAgreementCancelled(id)
	}
	return nil
}

func (s *Scheduler) save(a model.Agreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Save(a)
}

func (s *Scheduler) deactivate(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.repo.FindByID(id)
	if err != nil {
		return false, err
	}
	if !a.Active {
		return false, nil
	}
	a.Active = false
	return true, s.repo.Save(a)
}

// Acknowledge records that a participant received a firing notice.
func (s *Scheduler) Acknowledge(agreementID, nodeID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.repo.FindByID(agreementID)
	if err != nil {
		return fmt.Errorf("acknowledge %s: %w", agreementID, err)
	}
	if a.Counterparty(nodeID) == "" {
		return fmt.Errorf("acknowledge %s: node %s is not a participant", agreementID, nodeID)
	}
	a.AckCount++
	at = at.UTC()
	a.LastAckAt = &at
	if err := s.repo.Save(a); err != nil {
		return fmt.Errorf("acknowledge %s: %w", agreementID, err)
	}
	s.log.Debugf("agreement %s acknowledged by %s (%d acks)", agreementID, nodeID, a.AckCount)
	return nil
}

// Tick fires every active agreement due at or before now, at most once each.
// Returns the number fired.
func (s *Scheduler) Tick(now time.Time) int {
	all, err := s.repo.FindAll()
	if err != nil {
		s.log.Errorf("list agreements: %v", err)
		return 0
	}
	fired := 0
	for _, a := range all {
		if !a.Active || a.NextDue.After(now) {
			continue
		}
		err := s.fire(a.ID, now)
		if errors.Is(err, errNotDue) {
			continue
		}
		if err != nil {
			s.log.Errorf("agreement %s: %v", a.ID, err)
			continue
		}
		fired++
	}
	return fired
}

var errNotDue = errors.New("not due")

// fire notifies both participants and advances the schedule.
func (s *Scheduler) fire(id string, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	a, prev, err := s.advance(id, now)
	if err != nil {
		return err
	}
	firedAt := *a.LastFired

	for _, dst := range []string{a.NodeA, a.NodeB} {
		payload := protocol.ResourceExchangeFired{
			AgreementID:  a.ID,
			Resource:     a.Resource,
			Volume:       a.Volume,
			Rate:         a.Rate,
			Counterparty: a.Counterparty(dst),
			FiredAt:      firedAt,
		}
		if _, err := s.enqueuer.Enqueue(payload.Counterparty, dst, payload); err != nil {
			s.log.Warnf("agreement %s: notify %s: %v", a.ID, dst, err)
		}
	}

	s.log.Infof("agreement %s fired (%s due %s), next due %s",
		a.ID, a.Frequency, prev.Format(time.RFC3339), a.NextDue.Format(time.RFC3339))
	if s.emitter != nil {
		s.emitter.EmitAgreementFired(a.Clone(), firedAt)
	}
	return nil
}

// advance re-reads the agreement under the lock, so a concurrent cancel or
// tick wins cleanly, and saves it with the next due time.
func (s *Scheduler) advance(id string, now time.Time) (model.Agreement, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.repo.FindByID(id)
	if err != nil {
		return model.Agreement{}, time.Time{}, err
	}
	if !a.Active || a.NextDue.After(now) {
		return model.Agreement{}, time.Time{}, errNotDue
	}

	prev := a.NextDue
	a.NextDue = a.Frequency.Advance(prev)
	a.FireCount++
	firedAt := now.UTC()
	a.LastFired = &firedAt
	if err := s.repo.Save(a); err != nil {
		return model.Agreement{}, time.Time{}, fmt.Errorf("save: %w", err)
	}
	return a, prev, nil
}

// Start launches the periodic tick loop.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop ends the tick loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Tick(s.now())
		}
	}
}
