//go:build linux

package affinity_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-relay/affinity"
	"github.com/momentics/hioload-relay/api"
)

func TestPinGoroutineRestoresMask(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	before, err := affinity.Allowed()
	require.NoError(t, err)
	require.NotEmpty(t, before)

	unpin, err := affinity.PinGoroutine(before[0])
	require.NoError(t, err)
	pinned, err := affinity.Allowed()
	require.NoError(t, err)
	assert.Equal(t, []int{before[0]}, pinned)

	require.NoError(t, unpin())
	after, err := affinity.Allowed()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSetAffinityRejectsNegativeCPU(t *testing.T) {
	assert.ErrorIs(t, affinity.SetAffinity(-1), api.ErrInvalidConfig)
}
