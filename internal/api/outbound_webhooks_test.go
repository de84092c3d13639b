package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/pilotsim/internal/eventbus"
)

type received struct {
	mu     sync.Mutex
	bodies [][]byte
	sigs   []string
	types  []string
}

func (r *received) handler(status *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.bodies = append(r.bodies, body)
		r.sigs = append(r.sigs, req.Header.Get("X-Webhook-Signature"))
		r.types = append(r.types, req.Header.Get("X-Event-Type"))
		r.mu.Unlock()
		w.WriteHeader(int(atomic.LoadInt32(status)))
	}
}

func envelope(t *testing.T, eventType string, payload interface{}) *eventbus.Envelope {
	t.Helper()
	ev, err := eventbus.NewEnvelope(eventType, eventbus.PriorityNormal, payload)
	require.NoError(t, err)
	return ev
}

func (r *received) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func TestWebhookDelivery(t *testing.T) {
	rec := &received{}
	status := int32(http.StatusOK)
	srv := httptest.NewServer(rec.handler(&status))
	defer srv.Close()

	m := NewOutboundWebhookManager()
	hook := m.AddWebhook(OutboundWebhook{
		Name:   "ops",
		URL:    srv.URL,
		Secret: "s3cret",
		Events: []string{eventbus.TypeDeath},
	})

	ev := envelope(t, eventbus.TypeDeath, eventbus.DeathPayload{Pilot: 7})
	m.Dispatch(ev)
	// Подписка только на гибель, хук не уходит
	m.Dispatch(envelope(t, eventbus.TypeHook, nil))
	m.Wait()

	require.Equal(t, 1, rec.count())
	assert.Equal(t, eventbus.TypeDeath, rec.types[0])
	assert.Equal(t, Sign(rec.bodies[0], "s3cret"), rec.sigs[0])

	var got eventbus.Envelope
	require.NoError(t, json.Unmarshal(rec.bodies[0], &got))
	assert.Equal(t, ev.ID, got.ID)

	stored, ok := m.GetWebhook(hook.ID)
	require.True(t, ok)
	assert.NotNil(t, stored.LastUsed)
	assert.Zero(t, stored.FailureCount)

	// Выключенная подписка ничего не получает
	require.True(t, m.SetActive(hook.ID, false))
	m.Dispatch(ev)
	m.Wait()
	assert.Equal(t, 1, rec.count())
}

func TestWebhookRetries(t *testing.T) {
	rec := &received{}
	status := int32(http.StatusInternalServerError)
	srv := httptest.NewServer(rec.handler(&status))
	defer srv.Close()

	m := NewOutboundWebhookManager()
	m.retryDelay = time.Millisecond
	hook := m.AddWebhook(OutboundWebhook{Name: "flaky", URL: srv.URL, Events: []string{"*"}, RetryCount: 2})

	m.Dispatch(envelope(t, eventbus.TypeJump, nil))
	m.Wait()

	assert.Equal(t, 3, rec.count(), "Первая попытка и два повтора")
	assert.Empty(t, rec.sigs[0], "Без секрета подписи нет")
	stored, _ := m.GetWebhook(hook.ID)
	assert.Equal(t, 1, stored.FailureCount)
}

func TestWebhookAttach(t *testing.T) {
	rec := &received{}
	status := int32(http.StatusNoContent)
	srv := httptest.NewServer(rec.handler(&status))
	defer srv.Close()

	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()

	m := NewOutboundWebhookManager()
	m.AddWebhook(OutboundWebhook{Name: "all", URL: srv.URL, Events: []string{"*"}})

	ctx := context.Background()
	sub, err := m.Attach(ctx, bus)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, bus.Publish(ctx, envelope(t, eventbus.TypeHook, nil)))
	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSign(t *testing.T) {
	a := Sign([]byte("body"), "k1")
	assert.Equal(t, a, Sign([]byte("body"), "k1"))
	assert.NotEqual(t, a, Sign([]byte("body"), "k2"))
	assert.Len(t, a, len("sha256=")+64)
}
