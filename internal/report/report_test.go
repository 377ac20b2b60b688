package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbot/internal/store"
)

func testSession() *store.Session {
	started := time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)
	return &store.Session{
		ID:                "sess-1",
		Serial:            "emulator-5554",
		StartedAt:         started,
		EndedAt:           started.Add(12 * time.Minute),
		ProfilesProcessed: 3,
		Liked:             2,
		Passed:            1,
		HaltReason:        "profile cap of 3 reached",
	}
}

func TestBuildIncludesStatsAndDecisions(t *testing.T) {
	b, err := New(50)
	require.NoError(t, err)

	decisions := []store.DecisionRecord{
		{ProfileName: "Emma", ProfileAge: 28, Action: "like", Confidence: 0.9, Rationale: "shared interests", Status: "success"},
		{ProfileName: "Olivia", ProfileAge: 31, Action: "comment", Comment: "Great travel photos!", Confidence: 0.85, Status: "success"},
		{ProfileName: "Mia", ProfileAge: 40, Action: "pass", Confidence: 1.0, Rationale: "age 40 outside range [21, 35]", Status: "success"},
	}

	rep, err := b.Build(testSession(), decisions)
	require.NoError(t, err)

	assert.Contains(t, rep.Subject, "3 profiles")
	assert.Contains(t, rep.HTMLBody, "Emma")
	assert.Contains(t, rep.HTMLBody, "Great travel photos!")
	assert.Contains(t, rep.HTMLBody, "profile cap of 3 reached")
	assert.Contains(t, rep.PlainBody, "2 liked")
	assert.Contains(t, rep.PlainBody, "Mia (40): pass")
}

func TestBuildCapsDecisionRows(t *testing.T) {
	b, err := New(1)
	require.NoError(t, err)

	decisions := []store.DecisionRecord{
		{ProfileName: "Emma", Action: "like"},
		{ProfileName: "Olivia", Action: "pass"},
	}

	rep, err := b.Build(testSession(), decisions)
	require.NoError(t, err)
	assert.Contains(t, rep.HTMLBody, "Emma")
	assert.NotContains(t, rep.HTMLBody, "Olivia")
}

func TestBuildEmptySession(t *testing.T) {
	b, err := New(50)
	require.NoError(t, err)

	rep, err := b.Build(testSession(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, rep.PlainBody)
}
