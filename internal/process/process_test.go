package process

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(names ...string) Lister {
	return func(context.Context) ([]string, error) { return names, nil }
}

func TestParseTasklist(t *testing.T) {
	out := []byte(`"System Idle Process","0","Services","0","8 K"
"explorer.exe","4242","Console","1","120,344 K"
"H5_Universe.exe","5150","Console","1","812,004 K"
INFO: No tasks are running which match the specified criteria.
`)
	names, err := ParseTasklist(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"explorer.exe", "H5_Universe.exe"}, names)
}

func TestRunning(t *testing.T) {
	found, err := Running(context.Background(), fixed("explorer.exe", "h5_universe.EXE"), DefaultGameExecutables)
	require.NoError(t, err)
	assert.Equal(t, []string{"H5_Universe.exe"}, found)

	found, err = Running(context.Background(), fixed("explorer.exe"), DefaultGameExecutables)
	require.NoError(t, err)
	assert.Empty(t, found)

	boom := errors.New("boom")
	_, err = Running(context.Background(), func(context.Context) ([]string, error) { return nil, boom }, DefaultGameExecutables)
	assert.ErrorIs(t, err, boom)
}

func TestWaitForExit(t *testing.T) {
	var calls atomic.Int32
	list := func(context.Context) ([]string, error) {
		if calls.Add(1) < 3 {
			return []string{"H5_Game.exe"}, nil
		}
		return nil, nil
	}

	require.NoError(t, WaitForExit(context.Background(), list, DefaultGameExecutables, time.Millisecond))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForExit_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := WaitForExit(ctx, fixed("H5_Game.exe"), DefaultGameExecutables, 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "H5_Game.exe")
}
