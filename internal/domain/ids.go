package domain

// TripID is the server-assigned identifier of a trip.
type TripID string

// ContactID is the server-assigned identifier of an emergency contact entry.
type ContactID string
