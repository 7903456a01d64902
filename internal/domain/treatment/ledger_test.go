package treatment

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

func catalogPhase(itemIDs ...uuid.UUID) *Phase {
	p := &Phase{ID: uuid.New(), Title: "stimulation", Position: 1}
	for _, id := range itemIDs {
		p.Items = append(p.Items, &PhaseItem{PhaseID: p.ID, ItemID: id, Kind: ItemService})
	}
	return p
}

func assertPartition(t *testing.T, p *Phase) {
	t.Helper()
	pool := p.UnsetPool()
	assigned := p.AssignedItems()
	if len(pool)+len(assigned) != len(p.Items) {
		t.Fatalf("pool (%d) + assigned (%d) != catalog (%d)", len(pool), len(assigned), len(p.Items))
	}
	seen := make(map[uuid.UUID]bool)
	for _, id := range pool {
		seen[id] = true
	}
	for _, id := range assigned {
		if seen[id] {
			t.Fatalf("item %s is in both the pool and the assigned set", id)
		}
	}
}

func TestAssignItem(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	p := catalogPhase(a, b)
	target := uuid.New()

	if err := p.AssignItem(a, target); err != nil {
		t.Fatalf("assign: %v", err)
	}
	assertPartition(t, p)
	if len(p.UnsetPool()) != 1 {
		t.Errorf("expected 1 item left in the pool, got %d", len(p.UnsetPool()))
	}
}

func TestAssignItem_Duplicate(t *testing.T) {
	a := uuid.New()
	p := catalogPhase(a)

	if err := p.AssignItem(a, uuid.New()); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	err := p.AssignItem(a, uuid.New())
	if !errors.Is(err, workflow.ErrDuplicateAssignment) {
		t.Errorf("expected ErrDuplicateAssignment, got %v", err)
	}
	assertPartition(t, p)
}

func TestAssignItem_NotInCatalog(t *testing.T) {
	p := catalogPhase(uuid.New())

	err := p.AssignItem(uuid.New(), uuid.New())
	if !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUnassignItem(t *testing.T) {
	a := uuid.New()
	p := catalogPhase(a)

	if err := p.AssignItem(a, uuid.New()); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := p.UnassignItem(a, workflow.SchedulePending); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	assertPartition(t, p)
	if len(p.UnsetPool()) != 1 {
		t.Errorf("expected item back in the pool")
	}
}

func TestUnassignItem_OwningScheduleNotPending(t *testing.T) {
	a := uuid.New()
	p := catalogPhase(a)
	if err := p.AssignItem(a, uuid.New()); err != nil {
		t.Fatalf("assign: %v", err)
	}

	for _, st := range []workflow.ScheduleStatus{
		workflow.ScheduleChanged,
		workflow.ScheduleDone,
		workflow.ScheduleCancelled,
	} {
		if err := p.UnassignItem(a, st); !errors.Is(err, workflow.ErrInvalidStateTransition) {
			t.Errorf("owning %s: expected ErrInvalidStateTransition, got %v", st, err)
		}
	}
	assertPartition(t, p)
}

func TestReleaseTarget(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	p := catalogPhase(a, b, c)
	dying, other := uuid.New(), uuid.New()

	if err := p.AssignItem(a, dying); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := p.AssignItem(b, dying); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := p.AssignItem(c, other); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if n := p.ReleaseTarget(dying); n != 2 {
		t.Errorf("expected 2 released items, got %d", n)
	}
	assertPartition(t, p)
	if len(p.UnsetPool()) != 2 {
		t.Errorf("expected 2 items back in the pool, got %d", len(p.UnsetPool()))
	}
	if assigned := p.AssignedItems(); len(assigned) != 1 || assigned[0] != c {
		t.Errorf("the other target's item must stay assigned, got %v", assigned)
	}

	// Releasing an unknown target touches nothing.
	if n := p.ReleaseTarget(uuid.New()); n != 0 {
		t.Errorf("expected 0 released items, got %d", n)
	}
}

func TestUnassignItem_NotAssigned(t *testing.T) {
	a := uuid.New()
	p := catalogPhase(a)

	err := p.UnassignItem(a, workflow.SchedulePending)
	if !errors.Is(err, workflow.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}
}
