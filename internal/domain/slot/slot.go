// Package slot computes a doctor's free appointment slots for a day and
// validates bookings against collisions and past times.
//
// The workday is fixed: 09:00 to 17:00 in 30 minute slots. All functions are
// pure; callers pass the existing bookings and the current instant.
package slot

import (
	"errors"
	"time"

	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	ErrPastDateTime = errors.New("cannot book an appointment in the past")
	ErrSlotTaken    = errors.New("the doctor already has an appointment at that date and time")
)

const Duration = 30 * time.Minute

var (
	WorkdayStart = entity.NewTimeOfDay(9, 0)
	WorkdayEnd   = entity.NewTimeOfDay(17, 0)
)

// Candidates returns every slot start of the workday in order.
func Candidates() []entity.TimeOfDay {
	var slots []entity.TimeOfDay
	for t := WorkdayStart; t < WorkdayEnd; t = t.Add(Duration) {
		slots = append(slots, t)
	}
	return slots
}

// AvailableSlots returns the slots of date that are free for doctorID and
// strictly after now. date and now are compared in now's location.
// Bookings for other doctors or other days are ignored.
func AvailableSlots(doctorID uuid.UUID, date time.Time, existing []entity.Appointment, now time.Time) []entity.TimeOfDay {
	booked := make(map[entity.TimeOfDay]struct{})
	for i := range existing {
		a := &existing[i]
		if a.DoctorID != doctorID || !a.IsActive() || !sameDay(a.Date, date) {
			continue
		}
		booked[a.Time] = struct{}{}
	}

	available := make([]entity.TimeOfDay, 0, len(Candidates()))
	for _, t := range Candidates() {
		if _, taken := booked[t]; taken {
			continue
		}
		if !t.On(date, now.Location()).After(now) {
			continue
		}
		available = append(available, t)
	}
	return available
}

// BookingRequest is the slot a booking wants to occupy. ExcludeID is the
// appointment being edited, so it does not collide with itself.
type BookingRequest struct {
	DoctorID  uuid.UUID
	Date      time.Time
	Time      entity.TimeOfDay
	ExcludeID uuid.UUID
}

// ValidateBooking returns ErrPastDateTime when the slot is not after now and
// ErrSlotTaken when another active appointment occupies it.
func ValidateBooking(req BookingRequest, existing []entity.Appointment, now time.Time) error {
	if !req.Time.On(req.Date, now.Location()).After(now) {
		return ErrPastDateTime
	}
	for i := range existing {
		a := &existing[i]
		if a.ID != uuid.Nil && a.ID == req.ExcludeID {
			continue
		}
		if a.DoctorID == req.DoctorID && sameDay(a.Date, req.Date) && a.Time == req.Time && a.IsActive() {
			return ErrSlotTaken
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
