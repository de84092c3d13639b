package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	ev, err := NewEnvelope(TypeHook, PriorityNormal, HookPayload{Frame: 12, Pilot: 7, Name: "Hyena", Hook: "DEATH"})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, Source, ev.Source)

	var p HookPayload
	require.NoError(t, ev.Decode(&p))
	assert.Equal(t, uint32(7), p.Pilot)
	assert.Equal(t, "DEATH", p.Hook)
}

func TestMemoryBus_FilterAndOrder(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	got := make(chan string, 8)
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeHook}}, func(ctx context.Context, ev *Envelope) {
		var p HookPayload
		_ = ev.Decode(&p)
		got <- p.Hook
	})
	require.NoError(t, err)

	for _, h := range []string{"ATTACKED", "DISABLE", "DEATH"} {
		ev, _ := NewEnvelope(TypeHook, PriorityNormal, HookPayload{Hook: h})
		require.NoError(t, bus.Publish(context.Background(), ev))
	}
	jump, _ := NewEnvelope(TypeJump, PriorityNormal, JumpPayload{From: "A", To: "B"})
	require.NoError(t, bus.Publish(context.Background(), jump))

	var order []string
	for i := 0; i < 3; i++ {
		select {
		case h := <-got:
			order = append(order, h)
		case <-time.After(time.Second):
			t.Fatal("событие не доставлено")
		}
	}
	assert.Equal(t, []string{"ATTACKED", "DISABLE", "DEATH"}, order, "Порядок публикации сохраняется")

	assert.Eventually(t, func() bool { return bus.Metrics().Published == 4 }, time.Second, 10*time.Millisecond)
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	defer bus.Close()

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})
	require.NoError(t, err)

	first, _ := NewEnvelope(TypeHook, PriorityNormal, HookPayload{})
	require.NoError(t, bus.Publish(context.Background(), first))
	<-started

	second, _ := NewEnvelope(TypeHook, PriorityNormal, HookPayload{})
	require.NoError(t, bus.Publish(context.Background(), second))

	low, _ := NewEnvelope(TypeHook, PriorityLow, HookPayload{})
	require.NoError(t, bus.Publish(context.Background(), low))
	assert.Equal(t, uint64(1), bus.Metrics().Dropped)

	// Высокий приоритет ждёт места до отмены контекста
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	crit, _ := NewEnvelope(TypeDeath, PriorityCritical, DeathPayload{})
	assert.ErrorIs(t, bus.Publish(ctx, crit), context.DeadlineExceeded)

	close(release)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	calls := make(chan struct{}, 4)
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		calls <- struct{}{}
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	ev, _ := NewEnvelope(TypeHook, PriorityNormal, HookPayload{})
	require.NoError(t, bus.Publish(context.Background(), ev))
	select {
	case <-calls:
		t.Fatal("отписанный обработчик вызван")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBus_PublishAfterClose(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close(), "Повторное закрытие безопасно")

	ev, _ := NewEnvelope(TypeHook, PriorityNormal, HookPayload{})
	assert.ErrorIs(t, bus.Publish(context.Background(), ev), ErrClosed)
}

func TestMatchFilter(t *testing.T) {
	ev := &Envelope{EventType: TypeDeath, Source: Source}
	assert.True(t, matchFilter(ev, Filter{}))
	assert.True(t, matchFilter(ev, Filter{Types: []string{TypeHook, TypeDeath}}))
	assert.False(t, matchFilter(ev, Filter{Types: []string{TypeJump}}))
	assert.False(t, matchFilter(ev, Filter{Sources: []string{"other"}}))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "pilotsim.hook", Subject(TypeHook))
}

func TestArchiveDoc(t *testing.T) {
	ev, err := NewEnvelope(TypeHook, PriorityNormal, HookPayload{Frame: 99, Pilot: 4, Hook: "BOARD"})
	require.NoError(t, err)

	doc, err := toArchiveDoc(ev)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, doc.EventID)
	assert.Equal(t, uint64(99), doc.Frame)
	assert.Equal(t, uint32(4), doc.Pilot)
	assert.Equal(t, "BOARD", doc.Payload["hook"])
}

type fixedStats struct {
	EventBus
	stats Stats
}

func (f *fixedStats) Metrics() Stats { return f.stats }

func TestMetricsExporter_CollectsDeltas(t *testing.T) {
	bus := &fixedStats{stats: Stats{Published: 5, Dropped: 1, InFlight: 3}}
	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	prev := me.collect(Stats{})
	bus.stats = Stats{Published: 8, Dropped: 1, InFlight: 0}
	me.collect(prev)

	assert.InDelta(t, 8.0, testutil.ToFloat64(me.published), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(me.dropped), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(me.inflight), 1e-9)
}
