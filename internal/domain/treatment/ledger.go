package treatment

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

// The phase catalog is a strict partition: every item is either in the
// unset pool or assigned to exactly one schedule or prescription bundle.

// AssignItem moves a catalog item from the unset pool onto target. Items
// already assigned anywhere fail with ErrDuplicateAssignment; items outside
// the phase catalog fail with ErrNotFound.
func (p *Phase) AssignItem(itemID, target uuid.UUID) error {
	for _, it := range p.Items {
		if it.ItemID != itemID {
			continue
		}
		if it.Assigned() {
			return fmt.Errorf("item %s: %w", itemID, workflow.ErrDuplicateAssignment)
		}
		it.AssignedTo = &target
		return nil
	}
	return fmt.Errorf("item %s is not in the phase catalog: %w", itemID, workflow.ErrNotFound)
}

// UnassignItem returns a catalog item to the unset pool. Legal only while
// the owning schedule is still PENDING.
func (p *Phase) UnassignItem(itemID uuid.UUID, owning workflow.ScheduleStatus) error {
	for _, it := range p.Items {
		if it.ItemID != itemID {
			continue
		}
		if !it.Assigned() {
			return fmt.Errorf("item %s is not assigned: %w", itemID, workflow.ErrInvalidStateTransition)
		}
		if owning != workflow.SchedulePending {
			return fmt.Errorf("owning schedule is %s: %w", owning, workflow.ErrInvalidStateTransition)
		}
		it.AssignedTo = nil
		return nil
	}
	return fmt.Errorf("item %s is not in the phase catalog: %w", itemID, workflow.ErrNotFound)
}

// ReleaseTarget returns every item held by target to the unset pool and
// reports how many moved. UnassignItem is the doctor-editing path and only
// touches PENDING schedules; ReleaseTarget runs when the target itself is
// cancelled, whatever state it was in, so its items can be rebooked.
func (p *Phase) ReleaseTarget(target uuid.UUID) int {
	n := 0
	for _, it := range p.Items {
		if it.AssignedTo != nil && *it.AssignedTo == target {
			it.AssignedTo = nil
			n++
		}
	}
	return n
}

// UnsetPool returns the ids of items still available for assignment.
func (p *Phase) UnsetPool() []uuid.UUID {
	var out []uuid.UUID
	for _, it := range p.Items {
		if !it.Assigned() {
			out = append(out, it.ItemID)
		}
	}
	return out
}

// AssignedItems returns the ids of items attached to a schedule or bundle.
func (p *Phase) AssignedItems() []uuid.UUID {
	var out []uuid.UUID
	for _, it := range p.Items {
		if it.Assigned() {
			out = append(out, it.ItemID)
		}
	}
	return out
}
