package treatment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/assigndrug"
	"github.com/ferticare/portal/internal/domain/schedule"
	"github.com/ferticare/portal/internal/domain/workflow"
)

type mockRepo struct {
	items map[uuid.UUID]*Treatment
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Treatment)}
}

func (m *mockRepo) Create(ctx context.Context, t *Treatment) error {
	t.ID = uuid.New()
	for _, p := range t.Phases {
		p.ID = uuid.New()
		p.TreatmentID = t.ID
		for _, it := range p.Items {
			it.PhaseID = p.ID
		}
	}
	if len(t.Phases) > 0 {
		t.CurrentPhaseID = &t.Phases[0].ID
	}
	m.items[t.ID] = t
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockRepo) List(ctx context.Context, doctorID, patientID uuid.UUID, limit, offset int) ([]*Treatment, int, error) {
	var out []*Treatment
	for _, t := range m.items {
		if doctorID != uuid.Nil && t.DoctorID != doctorID {
			continue
		}
		if patientID != uuid.Nil && t.PatientID != patientID {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *mockRepo) GetPhase(ctx context.Context, phaseID uuid.UUID) (*Phase, error) {
	for _, t := range m.items {
		for _, p := range t.Phases {
			if p.ID == phaseID {
				return p, nil
			}
		}
	}
	return nil, workflow.ErrNotFound
}

func (m *mockRepo) SavePhaseItems(ctx context.Context, p *Phase) error { return nil }

func (m *mockRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []workflow.TreatmentStatus, to workflow.TreatmentStatus, endDate *time.Time) error {
	t, ok := m.items[id]
	if !ok {
		return workflow.ErrNotFound
	}
	for _, f := range from {
		if t.Status == f {
			t.Status = to
			if endDate != nil {
				t.EndDate = endDate
			}
			return nil
		}
	}
	return workflow.ErrInvalidStateTransition
}

func (m *mockRepo) SetCurrentPhase(ctx context.Context, treatmentID, phaseID uuid.UUID) error {
	t, ok := m.items[treatmentID]
	if !ok {
		return workflow.ErrNotFound
	}
	t.CurrentPhaseID = &phaseID
	return nil
}

type txPassthrough struct{}

func (txPassthrough) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type contractCall struct {
	treatmentID uuid.UUID
	deadline    time.Time
}

type stubContracts struct {
	created  []contractCall
	info     map[uuid.UUID]ContractInfo
	unsigned []uuid.UUID
}

func newStubContracts() *stubContracts {
	return &stubContracts{info: make(map[uuid.UUID]ContractInfo)}
}

func (s *stubContracts) Create(ctx context.Context, treatmentID uuid.UUID, deadline time.Time) error {
	s.created = append(s.created, contractCall{treatmentID, deadline})
	s.info[treatmentID] = ContractInfo{Signed: false, Deadline: deadline}
	return nil
}

func (s *stubContracts) InfoByTreatment(ctx context.Context, treatmentID uuid.UUID) (ContractInfo, error) {
	return s.info[treatmentID], nil
}

func (s *stubContracts) UnsignedPastDeadline(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	return s.unsigned, nil
}

type paymentCall struct {
	treatmentID uuid.UUID
	scheduleID  *uuid.UUID
	amount      int64
}

type stubPayments struct {
	created []paymentCall
}

func (s *stubPayments) Create(ctx context.Context, treatmentID uuid.UUID, scheduleID *uuid.UUID, amount int64, deadline *time.Time) error {
	s.created = append(s.created, paymentCall{treatmentID, scheduleID, amount})
	return nil
}

type stubSchedules struct {
	statuses  map[uuid.UUID][]workflow.ScheduleStatus
	byID      map[uuid.UUID]*schedule.Schedule
	booked    []*schedule.Schedule
	cancelled []uuid.UUID
}

func newStubSchedules() *stubSchedules {
	return &stubSchedules{
		statuses: make(map[uuid.UUID][]workflow.ScheduleStatus),
		byID:     make(map[uuid.UUID]*schedule.Schedule),
	}
}

func (s *stubSchedules) Get(ctx context.Context, id uuid.UUID) (*schedule.Schedule, error) {
	sc, ok := s.byID[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	cp := *sc
	return &cp, nil
}

func (s *stubSchedules) Set(ctx context.Context, in *schedule.Schedule) (*schedule.Schedule, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
		in.Status = workflow.SchedulePending
	} else {
		in.Status = workflow.ScheduleChanged
	}
	cp := *in
	s.byID[in.ID] = &cp
	s.booked = append(s.booked, in)
	return in, nil
}

func (s *stubSchedules) StatusesForPhase(ctx context.Context, phaseID uuid.UUID) ([]workflow.ScheduleStatus, error) {
	return s.statuses[phaseID], nil
}

func (s *stubSchedules) CancelOpenByTreatment(ctx context.Context, treatmentID uuid.UUID) (int64, error) {
	s.cancelled = append(s.cancelled, treatmentID)
	return 1, nil
}

type stubPrescriptions struct {
	created []*assigndrug.AssignDrug
}

func (s *stubPrescriptions) Create(ctx context.Context, a *assigndrug.AssignDrug) error {
	a.ID = uuid.New()
	a.Status = workflow.AssignDrugPending
	s.created = append(s.created, a)
	return nil
}

// flatPricer charges 100 per service.
type flatPricer struct{}

func (flatPricer) PriceOf(ctx context.Context, serviceIDs []uuid.UUID) (int64, error) {
	return int64(len(serviceIDs)) * 100, nil
}

type fixture struct {
	svc           *Service
	repo          *mockRepo
	contracts     *stubContracts
	payments      *stubPayments
	schedules     *stubSchedules
	prescriptions *stubPrescriptions
	now           time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:          newMockRepo(),
		contracts:     newStubContracts(),
		payments:      &stubPayments{},
		schedules:     newStubSchedules(),
		prescriptions: &stubPrescriptions{},
		now:           time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.repo, txPassthrough{}, 7*24*time.Hour)
	f.svc.SetContractGateway(f.contracts)
	f.svc.SetPaymentGateway(f.payments)
	f.svc.SetScheduleGateway(f.schedules)
	f.svc.SetPrescriptionGateway(f.prescriptions)
	f.svc.SetPricer(flatPricer{})
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func draft(mode workflow.PaymentMode, phaseItems ...int) *Treatment {
	t := &Treatment{
		Title:       "IVF long protocol",
		PatientID:   uuid.New(),
		DoctorID:    uuid.New(),
		PaymentMode: mode,
	}
	for i, n := range phaseItems {
		p := &Phase{Title: "phase", Position: i + 1}
		for j := 0; j < n; j++ {
			p.Items = append(p.Items, &PhaseItem{ItemID: uuid.New(), Kind: ItemService})
		}
		t.Phases = append(t.Phases, p)
	}
	return t
}

func TestCreate(t *testing.T) {
	f := newFixture()

	created, err := f.svc.Create(context.Background(), draft(workflow.PaymentModeFull, 2, 1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != workflow.TreatmentAwaitingContract {
		t.Errorf("expected AWAITING_CONTRACT_SIGNED, got %s", created.Status)
	}
	if created.CurrentPhase() == nil || created.CurrentPhase().Position != 1 {
		t.Error("current phase must point at the first phase")
	}

	if len(f.contracts.created) != 1 {
		t.Fatalf("expected 1 contract, got %d", len(f.contracts.created))
	}
	wantDeadline := f.now.Add(7 * 24 * time.Hour)
	if !f.contracts.created[0].deadline.Equal(wantDeadline) {
		t.Errorf("expected deadline %s, got %s", wantDeadline, f.contracts.created[0].deadline)
	}

	// Up-front billing opens one treatment payment priced over all phases.
	if len(f.payments.created) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(f.payments.created))
	}
	pc := f.payments.created[0]
	if pc.scheduleID != nil {
		t.Error("up-front payment must not link a schedule")
	}
	if pc.amount != 300 {
		t.Errorf("expected amount 300, got %d", pc.amount)
	}
}

func TestCreate_ByPhaseDefersPayments(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Create(context.Background(), draft(workflow.PaymentModeByPhase, 1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(f.payments.created) != 0 {
		t.Errorf("per-phase billing must not open payments at creation, got %d", len(f.payments.created))
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, draft(workflow.PaymentModeFull)); err == nil {
		t.Error("expected error for zero phases")
	}

	bad := draft(workflow.PaymentModeFull, 1, 1)
	bad.Phases[1].Position = 3
	if _, err := f.svc.Create(ctx, bad); err == nil {
		t.Error("expected error for non-contiguous positions")
	}

	dup := draft(workflow.PaymentModeFull, 1)
	dup.Phases[0].Items = append(dup.Phases[0].Items, &PhaseItem{ItemID: dup.Phases[0].Items[0].ItemID, Kind: ItemService})
	if _, err := f.svc.Create(ctx, dup); err == nil {
		t.Error("expected error for repeated catalog item")
	}

	unknown := draft("INSTALLMENTS", 1)
	if _, err := f.svc.Create(ctx, unknown); err == nil {
		t.Error("expected error for unknown payment mode")
	}
}

func TestActivate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, draft(workflow.PaymentModeFull, 1))
	if err := f.svc.Activate(ctx, created.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	got, _ := f.svc.Get(ctx, created.ID)
	if got.Status != workflow.TreatmentInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", got.Status)
	}

	if err := f.svc.Activate(ctx, created.ID); !errors.Is(err, workflow.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition on double activation, got %v", err)
	}
}

func inProgress(f *fixture, t *testing.T, phases ...int) *Treatment {
	t.Helper()
	created, err := f.svc.Create(context.Background(), draft(workflow.PaymentModeFull, phases...))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.Activate(context.Background(), created.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	got, _ := f.svc.Get(context.Background(), created.ID)
	return got
}

func TestMoveToNextPhase_Advances(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tr := inProgress(f, t, 1, 1)

	f.schedules.statuses[tr.Phases[0].ID] = []workflow.ScheduleStatus{workflow.ScheduleDone}

	moved, err := f.svc.MoveToNextPhase(ctx, tr.ID)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.CurrentPhase() == nil || moved.CurrentPhase().Position != 2 {
		t.Errorf("expected current phase 2, got %+v", moved.CurrentPhaseID)
	}
	if moved.Status != workflow.TreatmentInProgress {
		t.Errorf("treatment must stay IN_PROGRESS, got %s", moved.Status)
	}
}

// Last phase complete: one 09:00-09:30 appointment DONE, contract signed.
// Advancing completes the treatment and stamps the end date.
func TestMoveToNextPhase_CompletesTreatment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tr := inProgress(f, t, 1)

	f.schedules.statuses[tr.Phases[0].ID] = []workflow.ScheduleStatus{workflow.ScheduleDone}

	moved, err := f.svc.MoveToNextPhase(ctx, tr.ID)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Status != workflow.TreatmentCompleted {
		t.Errorf("expected COMPLETED, got %s", moved.Status)
	}
	if moved.EndDate == nil || !moved.EndDate.Equal(f.now) {
		t.Errorf("expected end date %s, got %v", f.now, moved.EndDate)
	}
}

func TestMoveToNextPhase_PhaseNotComplete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tr := inProgress(f, t, 1, 1)

	for _, statuses := range [][]workflow.ScheduleStatus{
		nil, // no schedules at all
		{workflow.SchedulePending},
		{workflow.ScheduleDone, workflow.ScheduleChanged},
		{workflow.ScheduleCancelled},
	} {
		f.schedules.statuses[tr.Phases[0].ID] = statuses
		_, err := f.svc.MoveToNextPhase(ctx, tr.ID)
		if !errors.Is(err, workflow.ErrPhaseNotComplete) {
			t.Errorf("statuses %v: expected ErrPhaseNotComplete, got %v", statuses, err)
		}
		got, _ := f.svc.Get(ctx, tr.ID)
		if *got.CurrentPhaseID != tr.Phases[0].ID {
			t.Errorf("statuses %v: current phase must not move on failure", statuses)
		}
	}
}

func TestMoveToNextPhase_ContractUnsigned(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, draft(workflow.PaymentModeFull, 1))
	f.schedules.statuses[created.Phases[0].ID] = []workflow.ScheduleStatus{workflow.ScheduleDone}

	_, err := f.svc.MoveToNextPhase(ctx, created.ID)
	if !errors.Is(err, workflow.ErrContractUnsigned) {
		t.Errorf("expected ErrContractUnsigned, got %v", err)
	}
}

func TestMoveToNextPhase_Terminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tr := inProgress(f, t, 1)

	f.schedules.statuses[tr.Phases[0].ID] = []workflow.ScheduleStatus{workflow.ScheduleDone}
	if _, err := f.svc.MoveToNextPhase(ctx, tr.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := f.svc.MoveToNextPhase(ctx, tr.ID)
	if !errors.Is(err, workflow.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on completed treatment, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tr := inProgress(f, t, 1)

	cancelled, err := f.svc.Cancel(ctx, tr.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != workflow.TreatmentCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}
	if len(f.schedules.cancelled) != 1 || f.schedules.cancelled[0] != tr.ID {
		t.Error("open appointments must be withdrawn with the treatment")
	}

	if _, err := f.svc.Cancel(ctx, tr.ID); !errors.Is(err, workflow.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}
}

// Unsigned contract with a 2024-01-10 deadline evaluated on 2024-01-11:
// the treatment is blocked for every schedule mutation.
func TestGateFor_DeadlineBlocked(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, draft(workflow.PaymentModeByPhase, 1))
	f.contracts.info[created.ID] = ContractInfo{
		Signed:   false,
		Deadline: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	f.now = time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)

	gate, err := f.svc.GateFor(ctx, created.ID)
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	if !gate.DeadlineBlocked {
		t.Error("expected DeadlineBlocked past an unsigned deadline")
	}
	if gate.Mode != workflow.PaymentModeByPhase {
		t.Errorf("expected payment mode passthrough, got %s", gate.Mode)
	}

	// A signed contract past its deadline does not block.
	f.contracts.info[created.ID] = ContractInfo{
		Signed:   true,
		Deadline: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	gate, _ = f.svc.GateFor(ctx, created.ID)
	if gate.DeadlineBlocked {
		t.Error("a signed contract must not block regardless of deadline")
	}
}

func TestSetPhase(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tr := inProgress(f, t, 2)
	phase := tr.Phases[0]
	serviceID := phase.Items[0].ItemID
	drugID := uuid.New()
	phase.Items = append(phase.Items, &PhaseItem{PhaseID: phase.ID, ItemID: drugID, Kind: ItemDrug})

	in := SetPhaseInput{
		PhaseID: phase.ID,
		Schedules: []*schedule.Schedule{{
			Title:        "egg retrieval",
			StartTime:    time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC),
			EstimatedEnd: time.Date(2024, 1, 9, 9, 30, 0, 0, time.UTC),
			ServiceIDs:   []uuid.UUID{serviceID},
		}},
		AssignDrugs: []*assigndrug.AssignDrug{{
			Items: []*assigndrug.Item{{DrugID: drugID, Quantity: 2}},
		}},
	}

	saved, err := f.svc.SetPhase(ctx, in)
	if err != nil {
		t.Fatalf("set phase: %v", err)
	}

	if len(f.schedules.booked) != 1 {
		t.Fatalf("expected 1 booked schedule, got %d", len(f.schedules.booked))
	}
	booked := f.schedules.booked[0]
	if booked.TreatmentID != tr.ID || booked.PhaseID != phase.ID {
		t.Error("booked schedule must be stamped with treatment and phase")
	}
	if booked.DoctorID != tr.DoctorID || booked.PatientID != tr.PatientID {
		t.Error("schedule must default doctor and patient from the treatment")
	}

	if len(f.prescriptions.created) != 1 {
		t.Fatalf("expected 1 prescription bundle, got %d", len(f.prescriptions.created))
	}
	if f.prescriptions.created[0].DoctorID != tr.DoctorID {
		t.Error("prescription must default the doctor from the treatment")
	}

	// Both consumed items left the unset pool.
	if got := len(saved.AssignedItems()); got != 2 {
		t.Errorf("expected 2 assigned items, got %d", got)
	}
}

func TestSetPhase_ByPhaseOpensPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, draft(workflow.PaymentModeByPhase, 2))
	if err := f.svc.Activate(ctx, created.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	phase := created.Phases[0]

	_, err := f.svc.SetPhase(ctx, SetPhaseInput{
		PhaseID: phase.ID,
		Schedules: []*schedule.Schedule{{
			StartTime:    time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC),
			EstimatedEnd: time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC),
			ServiceIDs:   []uuid.UUID{phase.Items[0].ItemID, phase.Items[1].ItemID},
		}},
	})
	if err != nil {
		t.Fatalf("set phase: %v", err)
	}

	if len(f.payments.created) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(f.payments.created))
	}
	pc := f.payments.created[0]
	if pc.scheduleID == nil {
		t.Fatal("per-phase payment must link its schedule")
	}
	if pc.amount != 200 {
		t.Errorf("expected amount 200, got %d", pc.amount)
	}
}

func TestSetPhase_DuplicateAssignment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tr := inProgress(f, t, 1)
	phase := tr.Phases[0]
	serviceID := phase.Items[0].ItemID

	slot := func(hour int) *schedule.Schedule {
		return &schedule.Schedule{
			StartTime:    time.Date(2024, 1, 9, hour, 0, 0, 0, time.UTC),
			EstimatedEnd: time.Date(2024, 1, 9, hour, 30, 0, 0, time.UTC),
			ServiceIDs:   []uuid.UUID{serviceID},
		}
	}
	if _, err := f.svc.SetPhase(ctx, SetPhaseInput{PhaseID: phase.ID, Schedules: []*schedule.Schedule{slot(9)}}); err != nil {
		t.Fatalf("first set: %v", err)
	}

	_, err := f.svc.SetPhase(ctx, SetPhaseInput{PhaseID: phase.ID, Schedules: []*schedule.Schedule{slot(11)}})
	if !errors.Is(err, workflow.ErrDuplicateAssignment) {
		t.Errorf("expected ErrDuplicateAssignment, got %v", err)
	}
}

// Updating an appointment's service set keeps the ledger aligned: dropped
// services return to the unset pool, added ones leave it.
func TestSetPhase_UpdateRealignsLedger(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tr := inProgress(f, t, 2)
	phase := tr.Phases[0]
	first, second := phase.Items[0].ItemID, phase.Items[1].ItemID

	book := func(id, serviceID uuid.UUID, hour int) (*Phase, error) {
		return f.svc.SetPhase(ctx, SetPhaseInput{
			PhaseID: phase.ID,
			Schedules: []*schedule.Schedule{{
				ID:           id,
				StartTime:    time.Date(2024, 1, 9, hour, 0, 0, 0, time.UTC),
				EstimatedEnd: time.Date(2024, 1, 9, hour, 30, 0, 0, time.UTC),
				ServiceIDs:   []uuid.UUID{serviceID},
			}},
		})
	}

	if _, err := book(uuid.Nil, first, 9); err != nil {
		t.Fatalf("initial booking: %v", err)
	}
	scheduleID := f.schedules.booked[0].ID

	saved, err := book(scheduleID, second, 10)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if pool := saved.UnsetPool(); len(pool) != 1 || pool[0] != first {
		t.Errorf("expected pool [%s], got %v", first, pool)
	}
	if assigned := saved.AssignedItems(); len(assigned) != 1 || assigned[0] != second {
		t.Errorf("expected assigned [%s], got %v", second, assigned)
	}

	// The service the update took cannot be booked twice...
	if _, err := book(uuid.Nil, second, 11); !errors.Is(err, workflow.ErrDuplicateAssignment) {
		t.Errorf("expected ErrDuplicateAssignment, got %v", err)
	}
	// ...and the one it dropped is available again.
	if _, err := book(uuid.Nil, first, 12); err != nil {
		t.Errorf("rebooking the freed service: %v", err)
	}
}

func TestSetPhase_UpdateUnknownSchedule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tr := inProgress(f, t, 1)
	_, err := f.svc.SetPhase(ctx, SetPhaseInput{
		PhaseID: tr.Phases[0].ID,
		Schedules: []*schedule.Schedule{{
			ID:           uuid.New(),
			StartTime:    time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC),
			EstimatedEnd: time.Date(2024, 1, 9, 9, 30, 0, 0, time.UTC),
			ServiceIDs:   []uuid.UUID{tr.Phases[0].Items[0].ItemID},
		}},
	})
	if !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// A cancelled appointment's services go back to the pool and can be booked
// into a new slot.
func TestReleaseSchedule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tr := inProgress(f, t, 1)
	phase := tr.Phases[0]
	serviceID := phase.Items[0].ItemID

	slot := func(hour int) SetPhaseInput {
		return SetPhaseInput{
			PhaseID: phase.ID,
			Schedules: []*schedule.Schedule{{
				StartTime:    time.Date(2024, 1, 9, hour, 0, 0, 0, time.UTC),
				EstimatedEnd: time.Date(2024, 1, 9, hour, 30, 0, 0, time.UTC),
				ServiceIDs:   []uuid.UUID{serviceID},
			}},
		}
	}
	if _, err := f.svc.SetPhase(ctx, slot(9)); err != nil {
		t.Fatalf("booking: %v", err)
	}
	scheduleID := f.schedules.booked[0].ID

	if err := f.svc.ReleaseSchedule(ctx, phase.ID, scheduleID); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ := f.svc.Get(ctx, tr.ID)
	if pool := got.Phases[0].UnsetPool(); len(pool) != 1 || pool[0] != serviceID {
		t.Errorf("expected pool [%s], got %v", serviceID, pool)
	}

	if _, err := f.svc.SetPhase(ctx, slot(11)); err != nil {
		t.Errorf("rebooking the freed service: %v", err)
	}
}

func TestSetPhase_TerminalTreatment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tr := inProgress(f, t, 1)
	if _, err := f.svc.Cancel(ctx, tr.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := f.svc.SetPhase(ctx, SetPhaseInput{PhaseID: tr.Phases[0].ID})
	if !errors.Is(err, workflow.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestReconcileDeadlines(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	lapsed, _ := f.svc.Create(ctx, draft(workflow.PaymentModeFull, 1))
	healthy, _ := f.svc.Create(ctx, draft(workflow.PaymentModeFull, 1))
	f.contracts.unsigned = []uuid.UUID{lapsed.ID}

	n, err := f.svc.ReconcileDeadlines(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 cancelled treatment, got %d", n)
	}

	got, _ := f.svc.Get(ctx, lapsed.ID)
	if got.Status != workflow.TreatmentCancelled {
		t.Errorf("expected CANCELLED, got %s", got.Status)
	}
	untouched, _ := f.svc.Get(ctx, healthy.ID)
	if untouched.Status != workflow.TreatmentAwaitingContract {
		t.Errorf("healthy treatment must be untouched, got %s", untouched.Status)
	}

	// A second sweep over the same contract is a no-op, not an error.
	n, err = f.svc.ReconcileDeadlines(ctx)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 on second sweep, got %d", n)
	}
}
