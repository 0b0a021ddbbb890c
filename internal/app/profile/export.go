package profile

import (
	"encoding/json"
	"time"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
)

type exportContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type exportTrip struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Destination string          `json:"destination,omitempty"`
	StartDate   *time.Time      `json:"startDate,omitempty"`
	EndDate     *time.Time      `json:"endDate,omitempty"`
	Status      string          `json:"status,omitempty"`
	Contacts    []exportContact `json:"contacts"`
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func encodeTrips(ts []domain.Trip) (json.RawMessage, error) {
	out := make([]exportTrip, 0, len(ts))
	for _, t := range ts {
		et := exportTrip{
			ID:          string(t.ID),
			Name:        t.Name,
			Destination: t.Destination,
			StartDate:   optTime(t.StartDate),
			EndDate:     optTime(t.EndDate),
			Status:      string(t.Status),
			Contacts:    make([]exportContact, 0, len(t.Contacts)),
		}
		for _, c := range t.Contacts {
			et.Contacts = append(et.Contacts, exportContact{ID: string(c.ID), Name: c.Name, Phone: c.Phone, Email: c.Email})
		}
		out = append(out, et)
	}
	return json.Marshal(out)
}
