package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/annel0/pilotsim/internal/pilot"
)

func TestSim_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSim(reg)

	m.Hit("energy", 12)
	m.Hit("energy", 0)
	m.Hit("kinetic", 3)
	m.Death()
	m.Jump()
	m.HookFired(pilot.HookDeath)
	m.HookFired(pilot.HookDeath)
	m.InvariantViolation("pool")
	m.AIError()
	m.Command(nil)
	m.Command(errors.New("нет"))
	m.Frame(5*time.Millisecond, 7, 3)
	m.FrameSkipped()

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.hits.WithLabelValues("energy")), 1e-9)
	assert.InDelta(t, 12.0, testutil.ToFloat64(m.damage.WithLabelValues("energy")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.hooks.WithLabelValues(pilot.HookDeath.String())), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.violations.WithLabelValues("pool")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("error")), 1e-9)
	assert.InDelta(t, 7.0, testutil.ToFloat64(m.pilotsActive), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.framesSkipped), 1e-9)

	n, err := testutil.GatherAndCount(reg, "pilotsim_frame_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcess_Uptime(t *testing.T) {
	p := NewProcess(prometheus.NewRegistry())
	p.StartTime = time.Now().Add(-(26*time.Hour + 3*time.Minute + 4*time.Second))
	assert.Equal(t, "1д 2ч 3м 4с", p.Uptime())

	p.StartTime = time.Now().Add(-5 * time.Second)
	assert.Equal(t, "5с", p.Uptime())

	p.Collect()
	assert.Contains(t, p.MemoryStats(), "goroutines")
}
