package trips

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
)

type contactDTO struct {
	ID      string `json:"id,omitempty"`
	MongoID string `json:"_id,omitempty"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type tripDTO struct {
	ID          string       `json:"id,omitempty"`
	MongoID     string       `json:"_id,omitempty"`
	Name        string       `json:"name"`
	Destination string       `json:"destination,omitempty"`
	StartDate   string       `json:"startDate,omitempty"`
	EndDate     string       `json:"endDate,omitempty"`
	Status      string       `json:"status,omitempty"`
	Contacts    []contactDTO `json:"contacts"`
}

// dateLayouts are the date encodings servers have been seen to send.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}

func (d tripDTO) toDomain() (domain.Trip, error) {
	start, err := parseDate(d.StartDate)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("startDate: %w", err)
	}
	end, err := parseDate(d.EndDate)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("endDate: %w", err)
	}
	t := domain.Trip{
		ID:          domain.TripID(firstNonEmpty(d.ID, d.MongoID)),
		Name:        d.Name,
		Destination: d.Destination,
		StartDate:   start,
		EndDate:     end,
		Status:      domain.TripStatus(d.Status),
		Contacts:    make([]domain.Contact, 0, len(d.Contacts)),
	}
	for _, c := range d.Contacts {
		t.Contacts = append(t.Contacts, domain.Contact{
			ID:    domain.ContactID(firstNonEmpty(c.ID, c.MongoID)),
			Name:  c.Name,
			Phone: c.Phone,
			Email: c.Email,
		})
	}
	return t, nil
}

func fromDomain(t domain.Trip) tripDTO {
	d := tripDTO{
		ID:          string(t.ID),
		Name:        t.Name,
		Destination: t.Destination,
		StartDate:   formatDate(t.StartDate),
		EndDate:     formatDate(t.EndDate),
		Status:      string(t.Status),
		Contacts:    make([]contactDTO, 0, len(t.Contacts)),
	}
	for _, c := range t.Contacts {
		d.Contacts = append(d.Contacts, contactDTO{ID: string(c.ID), Name: c.Name, Phone: c.Phone, Email: c.Email})
	}
	return d
}

// decodeTripList accepts a bare array or an object wrapping it under "trips".
func decodeTripList(b []byte) ([]domain.Trip, error) {
	b = bytes.TrimSpace(b)
	var dtos []tripDTO
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
	case b[0] == '[':
		if err := json.Unmarshal(b, &dtos); err != nil {
			return nil, fmt.Errorf("decode trip list: %w", err)
		}
	case b[0] == '{':
		var wrapped struct {
			Trips []tripDTO `json:"trips"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return nil, fmt.Errorf("decode trip list: %w", err)
		}
		dtos = wrapped.Trips
	default:
		return nil, fmt.Errorf("decode trip list: unexpected payload")
	}
	return toDomainList(dtos)
}

func toDomainList(dtos []tripDTO) ([]domain.Trip, error) {
	out := make([]domain.Trip, 0, len(dtos))
	for i, d := range dtos {
		t, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("trip %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// decodeTrip accepts {"trip": {...}} or a bare trip object.
func decodeTrip(b []byte) (domain.Trip, error) {
	var wrapped struct {
		Trip *tripDTO `json:"trip"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return domain.Trip{}, fmt.Errorf("decode trip: %w", err)
	}
	if wrapped.Trip != nil {
		return wrapped.Trip.toDomain()
	}
	var bare tripDTO
	if err := json.Unmarshal(b, &bare); err != nil {
		return domain.Trip{}, fmt.Errorf("decode trip: %w", err)
	}
	if bare.ID == "" && bare.MongoID == "" {
		return domain.Trip{}, fmt.Errorf("decode trip: no trip in response")
	}
	return bare.toDomain()
}

func encodeCache(ts []domain.Trip) ([]byte, error) {
	dtos := make([]tripDTO, 0, len(ts))
	for _, t := range ts {
		dtos = append(dtos, fromDomain(t))
	}
	return json.Marshal(dtos)
}
