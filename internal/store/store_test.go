package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "matchbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)

	started := time.Now().Add(-10 * time.Minute).UTC().Truncate(time.Second)
	sess := &Session{ID: "sess-1", Serial: "emulator-5554", StartedAt: started}
	require.NoError(t, s.SaveSession(sess))

	sess.EndedAt = started.Add(9 * time.Minute)
	sess.ProfilesProcessed = 12
	sess.Liked = 5
	sess.Passed = 6
	sess.Commented = 1
	sess.HaltReason = "max profiles reached"
	require.NoError(t, s.CloseSession(sess))

	sessions, err := s.RecentSessions(5)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	got := sessions[0]
	assert.Equal(t, "sess-1", got.ID)
	assert.Equal(t, "emulator-5554", got.Serial)
	assert.Equal(t, 12, got.ProfilesProcessed)
	assert.Equal(t, 5, got.Liked)
	assert.Equal(t, 1, got.Commented)
	assert.Equal(t, "max profiles reached", got.HaltReason)
}

func TestDecisionUpsertUpdatesStatus(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveSession(&Session{ID: "sess-1", StartedAt: time.Now()}))

	d := &DecisionRecord{
		ID:          "dec-1",
		SessionID:   "sess-1",
		ProfileName: "Emma",
		ProfileAge:  28,
		Action:      "like",
		Confidence:  0.9,
		Rationale:   "shared interests",
		Status:      "pending",
		DecidedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.SaveDecision(d))

	d.Status = "success"
	require.NoError(t, s.SaveDecision(d))

	decisions, err := s.SessionDecisions("sess-1")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "success", decisions[0].Status)
	assert.Equal(t, "like", decisions[0].Action)
	assert.Equal(t, 28, decisions[0].ProfileAge)
}

func TestDecidedToday(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveSession(&Session{ID: "sess-1", StartedAt: time.Now()}))

	require.NoError(t, s.SaveDecision(&DecisionRecord{
		ID: "dec-old", SessionID: "sess-1", Action: "pass",
		DecidedAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, s.SaveDecision(&DecisionRecord{
		ID: "dec-new", SessionID: "sess-1", Action: "like",
		DecidedAt: time.Now(),
	}))

	count, err := s.DecidedToday()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
