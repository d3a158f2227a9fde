package resyncflag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetThenIsSetWithinInterval(t *testing.T) {
	f := New(time.Minute)
	now := time.Unix(0, 0)
	f.now = func() time.Time { return now }

	f.Set()
	assert.True(t, f.IsSet())

	now = now.Add(30 * time.Second)
	assert.True(t, f.IsSet())
}

func TestAutoClearsAfterDeadline(t *testing.T) {
	f := New(time.Minute)
	now := time.Unix(0, 0)
	f.now = func() time.Time { return now }

	f.Set()
	now = now.Add(61 * time.Second)
	assert.False(t, f.IsSet())
}

func TestResetClearsImmediately(t *testing.T) {
	f := New(time.Minute)
	f.Set()
	require := assert.New(t)
	require.True(f.IsSet())
	f.Reset()
	require.False(f.IsSet())
}

func TestZeroValueIsUnset(t *testing.T) {
	f := New(time.Minute)
	assert.False(t, f.IsSet())
}
