//go:build !windows

package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/ui-harness/internal/automation/sim"
)

func launchReady(t *testing.T, d *sim.Driver, h *Harness) *Session {
	t.Helper()
	s, err := h.Launch(context.Background(), LaunchOptions{
		Executable: findBin(t, "sleep"),
		Args:       []string{"60"},
		Policy:     shortPolicy(t, 5*time.Second, 50*time.Millisecond),
	})
	require.NoError(t, err)
	return s
}

func TestTeardown_ReclaimsEverything(t *testing.T) {
	d := sim.NewDriver(sim.Script{WindowTitle: "Inventory Manager"})
	h := New(d, testConfig(t))
	defer h.Close()

	s := launchReady(t, d, h)
	h.Teardown(context.Background(), s)

	assert.True(t, s.Exited(), "process must be gone after teardown")
	assert.Equal(t, 1, d.Releases(), "automation root must be released")

	// Graceful exit: sleep dies on the interrupt signal, so no forced
	// termination should have been needed.
	assert.Equal(t, 0, s.killCount)
}

func TestTeardown_Idempotent(t *testing.T) {
	d := sim.NewDriver(sim.Script{WindowTitle: "Inventory Manager"})
	h := New(d, testConfig(t))
	defer h.Close()

	s := launchReady(t, d, h)
	h.Teardown(context.Background(), s)
	kills := s.killCount

	// Calling again must not raise, must not re-release the root, and must
	// not attempt another forced termination.
	h.Teardown(context.Background(), s)
	assert.Equal(t, 1, d.Releases())
	assert.Equal(t, kills, s.killCount)
}

func TestTeardown_PartialSession(t *testing.T) {
	// Launch fails before a window was ever found; the failure path runs
	// teardown on the partially populated session without blowing up.
	d := sim.NewDriver(sim.Script{WindowDelay: time.Hour})
	h := New(d, testConfig(t))
	defer h.Close()

	_, err := h.Launch(context.Background(), LaunchOptions{
		Executable: findBin(t, "sleep"),
		Args:       []string{"60"},
		Policy:     shortPolicy(t, 200*time.Millisecond, 50*time.Millisecond),
	})
	require.Error(t, err)
	assert.Equal(t, 1, d.Releases(), "partial teardown must still release the root")
}

func TestTeardown_NilSession(t *testing.T) {
	h := New(sim.NewDriver(sim.Script{}), testConfig(t))
	defer h.Close()
	h.Teardown(context.Background(), nil) // must not panic
}

func TestTeardown_RecordsExitStatus(t *testing.T) {
	d := sim.NewDriver(sim.Script{WindowTitle: "Inventory Manager"})
	h := New(d, testConfig(t))
	defer h.Close()

	s := launchReady(t, d, h)
	require.Nil(t, s.ExitErr(), "no exit status while the process runs")

	// sleep dies on the teardown signal, so the wait result must record an
	// abnormal exit.
	h.Teardown(context.Background(), s)
	require.Eventually(t, s.Exited, 5*time.Second, 20*time.Millisecond)
	assert.Error(t, s.ExitErr())
}

func TestTeardown_AlreadyExitedProcess(t *testing.T) {
	d := sim.NewDriver(sim.Script{WindowTitle: "Inventory Manager"})
	h := New(d, testConfig(t))
	defer h.Close()

	s := launchReady(t, d, h)

	// Kill the process out from under the harness, then tear down.
	require.NoError(t, s.cmd.Process.Kill())
	require.Eventually(t, s.Exited, 5*time.Second, 20*time.Millisecond)

	h.Teardown(context.Background(), s)
	assert.Equal(t, 0, s.killCount, "no escalation needed for an already-dead process")
	assert.Equal(t, 1, d.Releases())
}
