package domain

import (
	"strings"
	"time"
)

type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "Completed"
)

// IsTerminal reports whether the status marks a trip that can no longer be current.
// Server variants disagree on casing, so the comparison is case-insensitive.
func (s TripStatus) IsTerminal() bool {
	switch strings.ToLower(string(s)) {
	case "completed", "ended", "cancelled", "canceled":
		return true
	default:
		return false
	}
}

type Contact struct {
	ID    ContactID
	Name  string
	Phone string
	Email string
}

// Trip is the client-side snapshot of a server-owned trip.
type Trip struct {
	ID          TripID
	Name        string
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	Status      TripStatus

	// Contacts keeps the server's ordering.
	Contacts []Contact
}

// Covers reports whether now falls inside the trip's [StartDate, EndDate] interval.
func (t Trip) Covers(now time.Time) bool {
	if t.StartDate.IsZero() || t.EndDate.IsZero() {
		return false
	}
	return !now.Before(t.StartDate) && !now.After(t.EndDate)
}

// CurrentTrip returns the first trip whose interval contains now and whose
// status is not terminal.
func CurrentTrip(trips []Trip, now time.Time) (Trip, bool) {
	for _, t := range trips {
		if t.Status.IsTerminal() {
			continue
		}
		if t.Covers(now) {
			return t, true
		}
	}
	return Trip{}, false
}

// WithoutContact returns a copy of t with the given contact removed.
func (t Trip) WithoutContact(id ContactID) Trip {
	out := t
	out.Contacts = make([]Contact, 0, len(t.Contacts))
	for _, c := range t.Contacts {
		if c.ID != id {
			out.Contacts = append(out.Contacts, c)
		}
	}
	return out
}
