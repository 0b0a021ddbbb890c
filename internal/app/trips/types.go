package trips

import (
	"time"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
)

type ContactInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Phone string `json:"phone,omitempty" validate:"required_without=Email,max=32"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type CreateTripInput struct {
	Name        string         `json:"name" validate:"required,max=120"`
	Destination string         `json:"destination" validate:"required,max=200"`
	StartDate   time.Time      `json:"startDate" validate:"required"`
	EndDate     time.Time      `json:"endDate" validate:"required,gtfield=StartDate"`
	Contacts    []ContactInput `json:"contacts" validate:"dive"`
}

// UpdateTripInput carries only the fields to change.
type UpdateTripInput struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Destination *string    `json:"destination,omitempty" validate:"omitempty,min=1,max=200"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

func (in UpdateTripInput) empty() bool {
	return in.Name == nil && in.Destination == nil && in.StartDate == nil && in.EndDate == nil
}

type checkInRequest struct {
	Location  any       `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

func normalizeContact(in ContactInput) ContactInput {
	in.Name = domain.NormalizeHumanName(in.Name)
	return in
}
