package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStorePutGetClear(t *testing.T) {
	store := NewSessionStore(0)

	assert.Nil(t, store.Get("chat1"))

	store.Put(&Session{ChatID: "chat1", Step: StepRegisterUsername})
	session := store.Get("chat1")
	require.NotNil(t, session)
	assert.Equal(t, StepRegisterUsername, session.Step)

	store.Clear("chat1")
	assert.Nil(t, store.Get("chat1"))
}

func TestSessionStoreIdleExpiry(t *testing.T) {
	store := NewSessionStore(10 * time.Minute)

	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Put(&Session{ChatID: "chat1", Step: StepGameAmount})

	current = current.Add(9 * time.Minute)
	assert.NotNil(t, store.Get("chat1"))

	current = current.Add(2 * time.Minute)
	assert.Nil(t, store.Get("chat1"), "session past the idle timeout must be dropped")
}

func TestSessionStoreZeroTimeoutNeverExpires(t *testing.T) {
	store := NewSessionStore(0)

	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Put(&Session{ChatID: "chat1", Step: StepGameAmount})

	current = current.Add(24 * time.Hour)
	assert.NotNil(t, store.Get("chat1"))
}
