package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvDutare/Scan-Crop/internal/auth"
)

func TestUsersAreKeyedByNormalizedEmail(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.CreateUser(auth.User{ID: "u1", Email: "Farmer@Example.com"}))
	assert.ErrorIs(t, s.CreateUser(auth.User{ID: "u2", Email: " farmer@example.com"}), ErrDuplicate)

	u, err := s.UserByEmail("FARMER@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = s.UserByID("u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	s := NewMemoryStore()
	assert.ErrorIs(t, s.UpdateUser(auth.User{ID: "ghost"}), ErrNotFound)

	require.NoError(t, s.CreateUser(auth.User{ID: "u1", Email: "a@example.com"}))
	require.NoError(t, s.UpdateUser(auth.User{ID: "u1", Email: "a@example.com", EmailVerified: true}))

	u, err := s.UserByID("u1")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
}

func TestSessions(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.SaveSession(auth.Session{Token: "t1", UserID: "u1"}))

	sess, err := s.Session("t1")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)

	require.NoError(t, s.DeleteSession("t1"))
	assert.ErrorIs(t, s.DeleteSession("t1"), ErrNotFound)
	_, err = s.Session("t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTakeVerificationIsSingleUse(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.SaveVerification(auth.Verification{Code: "c1", UserID: "u1"}))

	v, err := s.TakeVerification("c1")
	require.NoError(t, err)
	assert.Equal(t, "u1", v.UserID)

	_, err = s.TakeVerification("c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPruneExpired(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()

	require.NoError(t, s.SaveSession(auth.Session{Token: "old", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, s.SaveSession(auth.Session{Token: "edge", ExpiresAt: now}))
	require.NoError(t, s.SaveSession(auth.Session{Token: "fresh", ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, s.SaveVerification(auth.Verification{Code: "stale", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, s.SaveVerification(auth.Verification{Code: "live", ExpiresAt: now.Add(time.Hour)}))

	sessions, codes := s.PruneExpired(now)
	assert.Equal(t, 2, sessions)
	assert.Equal(t, 1, codes)

	_, err := s.Session("fresh")
	assert.NoError(t, err)
	_, err = s.Session("edge")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.TakeVerification("live")
	assert.NoError(t, err)
}
