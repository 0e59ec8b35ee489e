package booking

import (
	"github.com/petalboard/petalboard-backend/internal/event"
)

// CapacityLedger decides whether one more answer fits a question. Counts are
// read by the caller inside the booking transaction after the event row is
// locked, so a decision here cannot be invalidated before the write commits.
type CapacityLedger struct{}

// Admit accepts one more answer on q when fewer than its quantity are taken.
// takenExcludingSelf must not include the caller's own previous answer.
func (CapacityLedger) Admit(q *event.Question, takenExcludingSelf int64) error {
	capacity := q.Capacity()
	if capacity == nil {
		return nil
	}
	if takenExcludingSelf >= int64(*capacity) {
		return capacityError(q.ID, q.Label, *capacity)
	}
	return nil
}

// Full reports whether q has no room left for the caller.
func (CapacityLedger) Full(q *event.Question, takenExcludingSelf int64) bool {
	capacity := q.Capacity()
	return capacity != nil && takenExcludingSelf >= int64(*capacity)
}

// AdmitEvent enforces the event-wide RSVP ceiling for a new RSVP.
func (CapacityLedger) AdmitEvent(e *event.Event, rsvpCount int64) error {
	if e.RSVPLimit != nil && rsvpCount >= int64(*e.RSVPLimit) {
		return eventFullError()
	}
	return nil
}
