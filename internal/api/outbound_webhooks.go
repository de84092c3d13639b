package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/annel0/pilotsim/internal/eventbus"
	"github.com/annel0/pilotsim/internal/logging"
)

// OutboundWebhook подписка внешнего сервиса на события симуляции
type OutboundWebhook struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"name" binding:"required"`
	URL          string     `json:"url" binding:"required,url"`
	Secret       string     `json:"secret,omitempty"`
	Events       []string   `json:"events" binding:"required"` // Типы событий шины, "*": все
	Active       bool       `json:"active"`
	Timeout      int        `json:"timeout"` // Таймаут в секундах
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
	FailureCount int        `json:"failure_count"`
}

// OutboundWebhookManager пересылает события шины на зарегистрированные адреса
type OutboundWebhookManager struct {
	mu         sync.RWMutex
	webhooks   map[uint64]*OutboundWebhook
	nextID     uint64
	httpClient *http.Client
	retryDelay time.Duration
	wg         sync.WaitGroup

	logger *logging.Logger
}

// NewOutboundWebhookManager создаёт пустой менеджер
func NewOutboundWebhookManager() *OutboundWebhookManager {
	return &OutboundWebhookManager{
		webhooks:   make(map[uint64]*OutboundWebhook),
		nextID:     1,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryDelay: time.Second,
		logger:     logging.GetComponentLogger("webhooks"),
	}
}

// AddWebhook регистрирует подписку и возвращает её копию
func (m *OutboundWebhookManager) AddWebhook(w OutboundWebhook) OutboundWebhook {
	m.mu.Lock()
	defer m.mu.Unlock()

	w.ID = m.nextID
	m.nextID++
	w.CreatedAt = time.Now()
	w.Active = true
	if w.Timeout <= 0 {
		w.Timeout = 10
	}
	if w.RetryCount < 0 {
		w.RetryCount = 0
	}
	m.webhooks[w.ID] = &w
	m.logger.Info("🔗 Webhook %d (%s) -> %s, события %v", w.ID, w.Name, w.URL, w.Events)
	return w
}

// GetWebhooks список подписок по возрастанию ID
func (m *OutboundWebhookManager) GetWebhooks() []OutboundWebhook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]OutboundWebhook, 0, len(m.webhooks))
	for _, w := range m.webhooks {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetWebhook подписка по ID
func (m *OutboundWebhookManager) GetWebhook(id uint64) (OutboundWebhook, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.webhooks[id]
	if !ok {
		return OutboundWebhook{}, false
	}
	return *w, true
}

// SetActive включает или выключает подписку
func (m *OutboundWebhookManager) SetActive(id uint64, active bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.webhooks[id]
	if ok {
		w.Active = active
	}
	return ok
}

// DeleteWebhook удаляет подписку
func (m *OutboundWebhookManager) DeleteWebhook(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.webhooks[id]; !ok {
		return false
	}
	delete(m.webhooks, id)
	return true
}

// Attach подписывает менеджер на все события шины
func (m *OutboundWebhookManager) Attach(ctx context.Context, bus eventbus.EventBus) (eventbus.Subscription, error) {
	return bus.Subscribe(ctx, eventbus.Filter{}, func(ctx context.Context, ev *eventbus.Envelope) {
		m.Dispatch(ev)
	})
}

// Dispatch отправляет событие всем подписанным адресам в фоне
func (m *OutboundWebhookManager) Dispatch(ev *eventbus.Envelope) {
	body, err := json.Marshal(ev)
	if err != nil {
		m.logger.Error("не удалось сериализовать событие %s: %v", ev.EventType, err)
		return
	}

	m.mu.RLock()
	var targets []OutboundWebhook
	for _, w := range m.webhooks {
		if w.Active && subscribed(w.Events, ev.EventType) {
			targets = append(targets, *w)
		}
	}
	m.mu.RUnlock()

	for _, w := range targets {
		m.wg.Add(1)
		go func(w OutboundWebhook) {
			defer m.wg.Done()
			m.deliver(w, ev.EventType, body)
		}(w)
	}
}

// Wait дожидается завершения начатых отправок
func (m *OutboundWebhookManager) Wait() {
	m.wg.Wait()
}

func subscribed(events []string, eventType string) bool {
	for _, e := range events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}

func (m *OutboundWebhookManager) deliver(w OutboundWebhook, eventType string, body []byte) {
	var lastErr error
	ok := false
	for attempt := 0; attempt <= w.RetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * m.retryDelay)
		}
		if lastErr = m.post(w, eventType, body); lastErr == nil {
			ok = true
			break
		}
		m.logger.Warn("webhook %s: попытка %d/%d: %v", w.Name, attempt+1, w.RetryCount+1, lastErr)
	}

	m.mu.Lock()
	if stored, exists := m.webhooks[w.ID]; exists {
		now := time.Now()
		stored.LastUsed = &now
		if !ok {
			stored.FailureCount++
		}
	}
	m.mu.Unlock()

	if ok {
		m.logger.Debug("событие %s доставлено в webhook %s", eventType, w.Name)
	} else {
		m.logger.Error("❌ событие %s не доставлено в webhook %s: %v", eventType, w.Name, lastErr)
	}
}

func (m *OutboundWebhookManager) post(w OutboundWebhook, eventType string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(w.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pilotsim/1.0")
	req.Header.Set("X-Event-Type", eventType)
	if w.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(body, w.Secret))
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("статус %d", resp.StatusCode)
	}
	return nil
}

// Sign HMAC-SHA256 подпись тела в формате "sha256=<hex>"
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
