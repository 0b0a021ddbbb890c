package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

// SignupDraft is an in-progress registration form kept across restarts.
type SignupDraft struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Store is the persisted session: credential plus profile, and the entries
// whose lifetime is bound to it.
type Store struct {
	storage storage.Storage
	clock   clock.Clock
	log     *slog.Logger
}

func NewStore(st storage.Storage, clk clock.Clock, log *slog.Logger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	return &Store{storage: st, clock: clk, log: log}
}

// Load returns the persisted session. It never fails: read errors are logged
// and reported as no session, and an undecodable record is deleted first.
func (s *Store) Load(ctx context.Context) (domain.Session, bool) {
	b, ok, err := s.storage.Get(ctx, storage.KeySession)
	if err != nil {
		s.log.WarnContext(ctx, "session read failed", slog.String("error", err.Error()))
		return domain.Session{}, false
	}
	if !ok {
		return domain.Session{}, false
	}
	sess, err := DecodeRecord(b)
	if err != nil {
		s.log.WarnContext(ctx, "discarding corrupt session record", slog.String("error", err.Error()))
		if derr := s.storage.Delete(ctx, storage.KeySession); derr != nil {
			s.log.WarnContext(ctx, "corrupt session record could not be deleted", slog.String("error", derr.Error()))
		}
		return domain.Session{}, false
	}
	return sess, true
}

// Credential returns the stored credential when one is present and non-empty.
func (s *Store) Credential(ctx context.Context) (string, bool) {
	sess, ok := s.Load(ctx)
	if !ok || !sess.Authenticated() {
		return "", false
	}
	return sess.Credential, true
}

// Save overwrites the persisted session with one write of the canonical record.
func (s *Store) Save(ctx context.Context, sess domain.Session) error {
	sess.LastSyncedAt = s.clock.Now().UTC()
	b, err := EncodeRecord(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.storage.Put(ctx, storage.KeySession, b); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// MergeProfile shallow-merges patch over the stored profile and persists the
// result. The credential is untouched. ok is false, and nothing is written,
// when no session exists.
func (s *Store) MergeProfile(ctx context.Context, patch ProfilePatch) (sess domain.Session, ok bool, err error) {
	cur, ok := s.Load(ctx)
	if !ok {
		return domain.Session{}, false, nil
	}
	cur.Profile = patch.Apply(cur.Profile)
	if err := s.Save(ctx, cur); err != nil {
		return domain.Session{}, true, err
	}
	// Reload so the caller sees exactly what was persisted (including LastSyncedAt).
	out, _ := s.Load(ctx)
	return out, true, nil
}

// Clear removes the session and every entry that depends on it.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, storage.SessionKeys...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// PutPendingToken stores a credential received from an external provider
// before its profile has been fetched.
func (s *Store) PutPendingToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty pending token")
	}
	b, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return s.storage.Put(ctx, storage.KeyPendingToken, b)
}

// PendingToken returns the provisional credential, if any.
func (s *Store) PendingToken(ctx context.Context) (string, bool) {
	b, ok, err := s.storage.Get(ctx, storage.KeyPendingToken)
	if err != nil || !ok {
		return "", false
	}
	var tok string
	if err := json.Unmarshal(b, &tok); err != nil || tok == "" {
		return "", false
	}
	return tok, true
}

func (s *Store) DeletePendingToken(ctx context.Context) error {
	return s.storage.Delete(ctx, storage.KeyPendingToken)
}

// DarkMode returns the stored display preference; false when unset or unreadable.
func (s *Store) DarkMode(ctx context.Context) bool {
	b, ok, err := s.storage.Get(ctx, storage.KeyDarkMode)
	if err != nil || !ok {
		return false
	}
	var on bool
	if err := json.Unmarshal(b, &on); err != nil {
		return false
	}
	return on
}

func (s *Store) SetDarkMode(ctx context.Context, on bool) error {
	b, _ := json.Marshal(on)
	return s.storage.Put(ctx, storage.KeyDarkMode, b)
}

func (s *Store) SaveSignupDraft(ctx context.Context, d SignupDraft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.storage.Put(ctx, storage.KeySignupDraft, b)
}

// SignupDraft returns the saved draft. An unreadable draft is treated as absent.
func (s *Store) SignupDraft(ctx context.Context) (SignupDraft, bool) {
	b, ok, err := s.storage.Get(ctx, storage.KeySignupDraft)
	if err != nil || !ok {
		return SignupDraft{}, false
	}
	var d SignupDraft
	if err := json.Unmarshal(b, &d); err != nil {
		return SignupDraft{}, false
	}
	return d, true
}
