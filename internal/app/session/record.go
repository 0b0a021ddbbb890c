package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
)

// Wire names shared by the stored record and the login/profile responses.
const (
	fieldToken          = "token"
	fieldUser           = "user"
	fieldLastSyncedAt   = "lastSyncedAt"
	fieldName           = "name"
	fieldEmail          = "email"
	fieldUsername       = "username"
	fieldProfilePicture = "profilePicture"
)

var (
	// ErrMalformedRecord indicates a stored or received session record could not be decoded.
	ErrMalformedRecord = errors.New("malformed session record")
)

// recordShape tags which of the two historical layouts a record used.
type recordShape int

const (
	shapeFlat recordShape = iota
	shapeNested
)

// DecodeRecord parses a session record in either layout:
//
//	nested: {"token": "...", "user": {"name": ..., ...}}
//	flat:   {"token": "...", "name": ..., ...}
//
// Both produce the same canonical Session; decoding an already-flat record is
// a no-op transformation.
func DecodeRecord(b []byte) (domain.Session, error) {
	fields, err := decodeObject(b)
	if err != nil {
		return domain.Session{}, err
	}

	var s domain.Session
	if raw, ok := fields[fieldToken]; ok {
		if err := decodeOptionalString(raw, &s.Credential); err != nil {
			return domain.Session{}, fmt.Errorf("%w: token: %v", ErrMalformedRecord, err)
		}
	}
	if raw, ok := fields[fieldLastSyncedAt]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &s.LastSyncedAt); err != nil {
			return domain.Session{}, fmt.Errorf("%w: lastSyncedAt: %v", ErrMalformedRecord, err)
		}
	}

	profileFields := fields
	shape, userRaw := classify(fields)
	if shape == shapeNested {
		if profileFields, err = decodeObject(userRaw); err != nil {
			return domain.Session{}, fmt.Errorf("user: %w", err)
		}
	}

	p, err := profileFrom(profileFields)
	if err != nil {
		return domain.Session{}, err
	}
	s.Profile = p
	return s, nil
}

// DecodeProfile parses a profile payload that is either a bare profile object
// or wrapped as {"user": {...}}.
func DecodeProfile(b []byte) (domain.Profile, error) {
	fields, err := decodeObject(b)
	if err != nil {
		return domain.Profile{}, err
	}
	if shape, userRaw := classify(fields); shape == shapeNested {
		if fields, err = decodeObject(userRaw); err != nil {
			return domain.Profile{}, fmt.Errorf("user: %w", err)
		}
	}
	return profileFrom(fields)
}

// EncodeRecord writes the canonical (flat) layout.
func EncodeRecord(s domain.Session) ([]byte, error) {
	out := flatProfile(s.Profile, 2)
	out[fieldToken] = s.Credential
	if !s.LastSyncedAt.IsZero() {
		out[fieldLastSyncedAt] = s.LastSyncedAt.UTC()
	}
	return json.Marshal(out)
}

// EncodeProfile writes the profile alone, with no credential.
func EncodeProfile(p domain.Profile) ([]byte, error) {
	return json.Marshal(flatProfile(p, 0))
}

func flatProfile(p domain.Profile, spare int) map[string]any {
	out := make(map[string]any, 4+spare+len(p.Extra))
	for k, v := range p.Extra {
		out[k] = v
	}
	putOptional(out, fieldName, p.Name)
	putOptional(out, fieldEmail, p.Email)
	putOptional(out, fieldUsername, p.Username)
	putOptional(out, fieldProfilePicture, p.ProfilePicture)
	return out
}

func classify(fields map[string]json.RawMessage) (recordShape, json.RawMessage) {
	raw, ok := fields[fieldUser]
	if !ok {
		return shapeFlat, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return shapeNested, raw
	}
	return shapeFlat, nil
}

func profileFrom(fields map[string]json.RawMessage) (domain.Profile, error) {
	var p domain.Profile
	targets := map[string]**string{
		fieldName:           &p.Name,
		fieldEmail:          &p.Email,
		fieldUsername:       &p.Username,
		fieldProfilePicture: &p.ProfilePicture,
	}
	for k, raw := range fields {
		if dst, ok := targets[k]; ok {
			if isNull(raw) {
				continue
			}
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return domain.Profile{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, k, err)
			}
			*dst = &v
			continue
		}
		switch k {
		case fieldToken, fieldUser, fieldLastSyncedAt:
			continue
		}
		if p.Extra == nil {
			p.Extra = map[string]json.RawMessage{}
		}
		p.Extra[k] = append(json.RawMessage(nil), raw...)
	}
	return p, nil
}

func decodeObject(b []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedRecord)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return fields, nil
}

func decodeOptionalString(raw json.RawMessage, dst *string) error {
	if isNull(raw) {
		*dst = ""
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func putOptional(out map[string]any, key string, v *string) {
	if v != nil {
		out[key] = *v
	}
}
