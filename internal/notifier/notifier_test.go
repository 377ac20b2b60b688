package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbot/internal/config"
	"matchbot/internal/store"
)

type fakeSender struct {
	to, subject, html, plain string
	calls                    int
}

func (f *fakeSender) Send(to, subject, htmlBody, plainBody string) error {
	f.calls++
	f.to, f.subject, f.html, f.plain = to, subject, htmlBody, plainBody
	return nil
}

func TestSendSessionReport(t *testing.T) {
	sender := &fakeSender{}
	n, err := New(sender, "me@example.com")
	require.NoError(t, err)

	sess := &store.Session{
		ID:                "sess-1",
		StartedAt:         time.Now().Add(-5 * time.Minute),
		EndedAt:           time.Now(),
		ProfilesProcessed: 2,
		Liked:             1,
		Passed:            1,
	}
	decisions := []store.DecisionRecord{
		{ProfileName: "Emma", ProfileAge: 28, Action: "like", Status: "success"},
	}

	require.NoError(t, n.SendSessionReport(sess, decisions))
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "me@example.com", sender.to)
	assert.Contains(t, sender.subject, "2 profiles")
	assert.Contains(t, sender.html, "Emma")
}

func TestNewFromConfigRequiresEnabled(t *testing.T) {
	_, err := NewFromConfig(config.EmailConfig{Enabled: false})
	assert.Error(t, err)
}
