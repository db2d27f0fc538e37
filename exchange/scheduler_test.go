package exchange

import (
	"errors"
	"testing"
	"time"

	"tradecore/dispatch"
	"tradecore/model"
	"tradecore/protocol"
	"tradecore/store"
)

type fakeNodes map[string]bool

func (f fakeNodes) Get(id string) (model.Node, error) {
	if !f[id] {
		return model.Node{}, &model.UnknownNodeError{ID: id}
	}
	return model.Node{ID: id}, nil
}

type sent struct {
	origin, dst string
	payload     protocol.ResourceExchangeFired
}

type mockEnqueuer struct {
	sent   []sent
	failTo string
}

func (m *mockEnqueuer) Enqueue(origin, dst string, p protocol.Payload) (dispatch.Message, error) {
	if dst == m.failTo {
		return dispatch.Message{}, errors.New("link down")
	}
	m.sent = append(m.sent, sent{origin, dst, p.(protocol.ResourceExchangeFired)})
	return dispatch.Message{Origin: origin, Destination: dst, Payload: p}, nil
}

type mockEmitter struct {
	registered int
	fired      []string
	cancelled  []string
}

func (m *mockEmitter) EmitAgreementRegistered(model.Agreement) { m.registered++ }
func (m *mockEmitter) EmitAgreementFired(a model.Agreement, _ time.Time) {
	m.fired = append(m.fired, a.ID)
}
func (m *mockEmitter) EmitAgreementCancelled(id string) { m.cancelled = append(m.cancelled, id) }

var epoch = time.Date(2301, 1, 31, 12, 0, 0, 0, time.UTC)

func testScheduler(t *testing.T) (*Scheduler, *mockEnqueuer, *mockEmitter) {
	t.Helper()
	enq := &mockEnqueuer{}
	em := &mockEmitter{}
	s := NewScheduler(store.NewMemoryAgreements(), fakeNodes{"earth": true, "mars": true, "titan": true}, enq, em, time.Minute, nil)
	s.SetClock(func() time.Time { return epoch })
	return s, enq, em
}

func agreement(freq model.Frequency, due time.Time) model.Agreement {
	return model.Agreement{
		NodeA: "earth", NodeB: "mars", Resource: "helium-3",
		Rate: 1.25, Volume: 500, Frequency: freq, NextDue: due,
	}
}

func TestRegister(t *testing.T) {
	s, _, em := testScheduler(t)

	a, err := s.Register(agreement(model.Weekly, epoch.Add(time.Hour)))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if a.ID == "" || !a.Active {
		t.Errorf("agreement = %+v", a)
	}
	if em.registered != 1 {
		t.Errorf("registered events = %d, want 1", em.registered)
	}
	got, err := s.Get(a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.NextDue.Equal(epoch.Add(time.Hour)) {
		t.Errorf("NextDue = %v", got.NextDue)
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestRegisterValidation(t *testing.T) {
	s, _, _ := testScheduler(t)

	unknown := agreement(model.Daily, epoch)
	unknown.NodeB = "vulcan"
	if _, err := s.Register(unknown); !model.IsUnknownNode(err) {
		t.Errorf("unknown node: err = %v, want UnknownNodeError", err)
	}

	cases := map[string]func(*model.Agreement){
		"same node":     func(a *model.Agreement) { a.NodeB = a.NodeA },
		"no resource":   func(a *model.Agreement) { a.Resource = "" },
		"zero rate":     func(a *model.Agreement) { a.Rate = 0 },
		"negative vol":  func(a *model.Agreement) { a.Volume = -1 },
		"bad frequency": func(a *model.Agreement) { a.Frequency = "hourly" },
		"no next due":   func(a *model.Agreement) { a.NextDue = time.Time{} },
	}
	for name, mutate := range cases {
		a := agreement(model.Daily, epoch)
		mutate(&a)
		_, err := s.Register(a)
		var invalid *model.InvalidAgreementError
		if !errors.As(err, &invalid) {
			t.Errorf("%s: err = %v, want InvalidAgreementError", name, err)
		}
	}
	if n, _ := s.Count(); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestTickFiresDueAgreementOnce(t *testing.T) {
	s, enq, em := testScheduler(t)
	now := epoch
	a, _ := s.Register(agreement(model.Daily, now.Add(-time.Second)))

	if n := s.Tick(now); n != 1 {
		t.Fatalf("fired %d, want 1", n)
	}
	got, _ := s.Get(a.ID)
	if got.FireCount != 1 {
		t.Errorf("FireCount = %d, want 1", got.FireCount)
	}
	want := now.Add(24*time.Hour - time.Second)
	if !got.NextDue.Equal(want) {
		t.Errorf("NextDue = %v, want %v", got.NextDue, want)
	}
	if !got.NextDue.After(now) {
		t.Error("NextDue should be in the future after firing")
	}

	// Both participants are notified, each naming the other side.
	if len(enq.sent) != 2 {
		t.Fatalf("sent = %d, want 2", len(enq.sent))
	}
	if enq.sent[0].dst != "earth" || enq.sent[0].payload.Counterparty != "mars" {
		t.Errorf("first notice = %+v", enq.sent[0])
	}
	if enq.sent[1].dst != "mars" || enq.sent[1].payload.Counterparty != "earth" {
		t.Errorf("second notice = %+v", enq.sent[1])
	}
	if len(em.fired) != 1 {
		t.Errorf("fired events = %v", em.fired)
	}

	// A second tick at the same instant fires nothing.
	if n := s.Tick(now); n != 0 {
		t.Errorf("second tick fired %d, want 0", n)
	}
}

func TestTickSkipsFutureAgreement(t *testing.T) {
	s, enq, _ := testScheduler(t)
	s.Register(agreement(model.Weekly, epoch.Add(time.Minute)))

	if n := s.Tick(epoch); n != 0 {
		t.Errorf("fired %d, want 0", n)
	}
	if len(enq.sent) != 0 {
		t.Errorf("sent = %d, want 0", len(enq.sent))
	}
}

func TestBehindScheduleRefiresOnLaterTicks(t *testing.T) {
	s, _, _ := testScheduler(t)
	now := epoch
	a, _ := s.Register(agreement(model.Daily, now.Add(-72*time.Hour-time.Second)))

	// Three days behind: each tick fires once and catches up one period.
	for i := 1; i <= 3; i++ {
		if n := s.Tick(now); n != 1 {
			t.Fatalf("tick %d fired %d, want 1", i, n)
		}
	}
	got, _ := s.Get(a.ID)
	if got.FireCount != 3 {
		t.Errorf("FireCount = %d, want 3", got.FireCount)
	}
	if !got.NextDue.Before(now) {
		t.Fatalf("NextDue = %v, want still behind %v", got.NextDue, now)
	}

	if n := s.Tick(now); n != 1 {
		t.Fatalf("catch-up tick fired %d, want 1", n)
	}
	got, _ = s.Get(a.ID)
	if !got.NextDue.After(now) {
		t.Errorf("NextDue = %v, want after %v", got.NextDue, now)
	}
	if n := s.Tick(now); n != 0 {
		t.Errorf("caught-up tick fired %d, want 0", n)
	}
}

func TestRescheduleNonRegression(t *testing.T) {
	due := time.Date(2301, 1, 31, 0, 0, 0, 0, time.UTC)
	for _, freq := range []model.Frequency{model.Daily, model.Weekly, model.Monthly, model.Seasonal} {
		s, _, _ := testScheduler(t)
		a, _ := s.Register(agreement(freq, due))
		prev := due
		for i := 0; i < 6; i++ {
			s.Tick(due.AddDate(2, 0, 0))
			got, _ := s.Get(a.ID)
			if !got.NextDue.After(prev) {
				t.Fatalf("%s: NextDue %v not after %v", freq, got.NextDue, prev)
			}
			prev = got.NextDue
		}
	}
}

func TestCalendarIncrements(t *testing.T) {
	due := time.Date(2301, 1, 15, 8, 0, 0, 0, time.UTC)
	cases := map[model.Frequency]time.Time{
		model.Daily:    time.Date(2301, 1, 16, 8, 0, 0, 0, time.UTC),
		model.Weekly:   time.Date(2301, 1, 22, 8, 0, 0, 0, time.UTC),
		model.Monthly:  time.Date(2301, 2, 15, 8, 0, 0, 0, time.UTC),
		model.Seasonal: time.Date(2301, 4, 15, 8, 0, 0, 0, time.UTC),
	}
	for freq, want := range cases {
		s, _, _ := testScheduler(t)
		a, _ := s.Register(agreement(freq, due))
		s.Tick(due)
		got, _ := s.Get(a.ID)
		if !got.NextDue.Equal(want) {
			t.Errorf("%s: NextDue = %v, want %v", freq, got.NextDue, want)
		}
	}
}

func TestNotifyFailureDoesNotBlock(t *testing.T) {
	s, enq, _ := testScheduler(t)
	enq.failTo = "earth"

	first, _ := s.Register(agreement(model.Daily, epoch))
	second := agreement(model.Daily, epoch)
	second.NodeA, second.NodeB = "titan", "mars"
	b, _ := s.Register(second)

	if n := s.Tick(epoch); n != 2 {
		t.Fatalf("fired %d, want 2", n)
	}
	// earth's notice failed; mars still hears about both agreements
	if len(enq.sent) != 3 {
		t.Errorf("sent = %d, want 3", len(enq.sent))
	}
	for _, id := range []string{first.ID, b.ID} {
		got, _ := s.Get(id)
		if got.FireCount != 1 {
			t.Errorf("%s FireCount = %d, want 1", id, got.FireCount)
		}
	}
}

func TestCancel(t *testing.T) {
	s, enq, em := testScheduler(t)
	a, _ := s.Register(agreement(model.Daily, epoch))

	if err := s.Cancel(a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if n := s.Tick(epoch.Add(time.Hour)); n != 0 {
		t.Errorf("cancelled agreement fired %d times", n)
	}
	if len(enq.sent) != 0 {
		t.Errorf("sent = %d, want 0", len(enq.sent))
	}
	got, _ := s.Get(a.ID)
	if got.Active {
		t.Error("Active should be false")
	}
	list, _ := s.List()
	if len(list) != 1 {
		t.Errorf("cancelled agreement should stay listed, got %d", len(list))
	}

	// Cancelling again is a no-op
	s.Cancel(a.ID)
	if len(em.cancelled) != 1 {
		t.Errorf("cancel events = %v", em.cancelled)
	}
	if err := s.Cancel("missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

type panickyRepo struct {
	model.Repository[model.Agreement]
	panicOnSave bool
}

func (r *panickyRepo) Save(a model.Agreement) error {
	if r.panicOnSave {
		panic("disk on fire")
	}
	return r.Repository.Save(a)
}

func TestPanicDuringFireReleasesLock(t *testing.T) {
	repo := &panickyRepo{Repository: store.NewMemoryAgreements()}
	enq := &mockEnqueuer{}
	s := NewScheduler(repo, fakeNodes{"earth": true, "mars": true}, enq, nil, time.Minute, nil)
	s.SetClock(func() time.Time { return epoch })
	a, err := s.Register(agreement(model.Daily, epoch))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	repo.panicOnSave = true
	if n := s.Tick(epoch); n != 0 {
		t.Fatalf("fired %d with failing repo, want 0", n)
	}
	repo.panicOnSave = false

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Acknowledge(a.ID, "mars", epoch); err != nil {
			t.Errorf("ack: %v", err)
		}
		if n := s.Tick(epoch); n != 1 {
			t.Errorf("fired %d after recovery, want 1", n)
		}
		if err := s.Cancel(a.ID); err != nil {
			t.Errorf("cancel: %v", err)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler lock still held after panic in fire")
	}
	if len(enq.sent) != 2 {
		t.Errorf("sent = %d, want 2", len(enq.sent))
	}
}

func TestAcknowledge(t *testing.T) {
	s, _, _ := testScheduler(t)
	a, _ := s.Register(agreement(model.Daily, epoch))

	at := epoch.Add(5 * time.Minute)
	if err := s.Acknowledge(a.ID, "mars", at); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if err := s.Acknowledge(a.ID, "earth", at.Add(time.Second)); err != nil {
		t.Fatalf("ack: %v", err)
	}
	got, _ := s.Get(a.ID)
	if got.AckCount != 2 {
		t.Errorf("AckCount = %d, want 2", got.AckCount)
	}
	if got.LastAckAt == nil || !got.LastAckAt.Equal(at.Add(time.Second)) {
		t.Errorf("LastAckAt = %v", got.LastAckAt)
	}
	if err := s.Acknowledge(a.ID, "titan", at); err == nil {
		t.Error("expected error for non-participant")
	}
	if err := s.Acknowledge("missing", "mars", at); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStartStop(t *testing.T) {
	s, _, _ := testScheduler(t)
	s.Start()
	s.Stop()
	s.Stop()
}
