package notifications

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/eventhub-backend/internal/users"
	"github.com/angelmondragon/eventhub-backend/pkg/config"
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/email"
	"github.com/angelmondragon/eventhub-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecipients struct {
	all  []users.Recipient
	gate chan struct{}
}

func newStubRecipients(n int) *stubRecipients {
	all := make([]users.Recipient, 0, n)
	for i := 0; i < n; i++ {
		all = append(all, users.Recipient{
			ID:       uuid.New(),
			Email:    fmt.Sprintf("fan%d@example.com", i),
			Username: fmt.Sprintf("fan%d", i),
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })
	return &stubRecipients{all: all}
}

func (s *stubRecipients) ListRecipients(ctx context.Context, after uuid.UUID, limit int) ([]users.Recipient, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	var page []users.Recipient
	for _, r := range s.all {
		if after != uuid.Nil && r.ID.String() <= after.String() {
			continue
		}
		page = append(page, r)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

type stubSender struct {
	mu     sync.Mutex
	sent   []*email.Message
	failTo string
	block  bool
}

func (s *stubSender) Send(ctx context.Context, msg *email.Message) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if msg.To[0] == s.failTo {
		return errors.New("mailbox unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingRecorder) Inc(kind, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[kind+":"+result]++
}

func (c *countingRecorder) get(result string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kindEventPublished+":"+result]
}

func fastConfig() config.NotificationsConfig {
	return config.NotificationsConfig{
		Workers:       2,
		RatePerSecond: 1000,
		Burst:         10,
		QueueSize:     4,
		BatchSize:     2,
		SendTimeout:   time.Second,
	}
}

func publishedEvent() *models.Event {
	desc := "Concerto acústico"
	return &models.Event{
		ID:          uuid.New(),
		Title:       "Rock Night",
		Description: &desc,
		StartsAt:    time.Date(2026, 11, 14, 21, 0, 0, 0, time.UTC),
		IsPublic:    true,
	}
}

func TestDispatcherSendsToEveryRecipient(t *testing.T) {
	recipients := newStubRecipients(5)
	sender := &stubSender{}
	recorder := &countingRecorder{counts: map[string]int{}}
	d, err := NewDispatcher(DispatcherParams{
		Recipients: recipients,
		Sender:     sender,
		Config:     fastConfig(),
		Metrics:    recorder,
	})
	require.NoError(t, err)

	require.NoError(t, d.NotifyEventPublished(context.Background(), publishedEvent()))
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 5, sender.count())
	assert.Equal(t, 5, recorder.get(metrics.ResultSent))
	seen := map[string]bool{}
	for _, msg := range sender.sent {
		seen[msg.To[0]] = true
		assert.Equal(t, "Novo Evento: Rock Night", msg.Subject)
	}
	assert.Len(t, seen, 5)
}

func TestDispatcherSwallowsPerRecipientFailure(t *testing.T) {
	recipients := newStubRecipients(3)
	sender := &stubSender{failTo: recipients.all[1].Email}
	recorder := &countingRecorder{counts: map[string]int{}}
	d, err := NewDispatcher(DispatcherParams{Recipients: recipients, Sender: sender, Config: fastConfig(), Metrics: recorder})
	require.NoError(t, err)

	require.NoError(t, d.NotifyEventPublished(context.Background(), publishedEvent()))
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 2, sender.count())
	assert.Equal(t, 2, recorder.get(metrics.ResultSent))
	assert.Equal(t, 1, recorder.get(metrics.ResultFailed))
}

func TestDispatcherRejectsWhenQueueFull(t *testing.T) {
	recipients := newStubRecipients(1)
	recipients.gate = make(chan struct{})
	cfg := fastConfig()
	cfg.QueueSize = 1
	d, err := NewDispatcher(DispatcherParams{Recipients: recipients, Sender: &stubSender{}, Config: cfg})
	require.NoError(t, err)

	var full error
	for i := 0; i < 3 && full == nil; i++ {
		full = d.NotifyEventPublished(context.Background(), publishedEvent())
	}
	assert.ErrorIs(t, full, ErrQueueFull)

	close(recipients.gate)
	require.NoError(t, d.Close(context.Background()))
	assert.ErrorIs(t, d.NotifyEventPublished(context.Background(), publishedEvent()), ErrDispatcherClosed)
}

func TestDispatcherCloseHonoursDeadline(t *testing.T) {
	cfg := fastConfig()
	cfg.SendTimeout = 0
	d, err := NewDispatcher(DispatcherParams{Recipients: newStubRecipients(2), Sender: &stubSender{block: true}, Config: cfg})
	require.NoError(t, err)
	require.NoError(t, d.NotifyEventPublished(context.Background(), publishedEvent()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}

func TestNewDispatcherValidatesParams(t *testing.T) {
	_, err := NewDispatcher(DispatcherParams{Sender: &stubSender{}, Config: fastConfig()})
	assert.Error(t, err)
	_, err = NewDispatcher(DispatcherParams{Recipients: newStubRecipients(1), Config: fastConfig()})
	assert.Error(t, err)
	_, err = NewDispatcher(DispatcherParams{Recipients: newStubRecipients(1), Sender: &stubSender{}})
	assert.Error(t, err)
}

func TestRendererEventPublished(t *testing.T) {
	r := NewRenderer("Coisa Mansa", nil)
	to := users.Recipient{ID: uuid.New(), Email: "ana@example.com", Username: "ana"}

	msg, err := r.EventPublished(to, AnnouncementFromEvent(publishedEvent()))
	require.NoError(t, err)

	assert.Equal(t, []string{"ana@example.com"}, msg.To)
	assert.Equal(t, "Novo Evento: Rock Night", msg.Subject)
	assert.Contains(t, msg.TextBody, "Olá ana,")
	assert.Contains(t, msg.TextBody, "Local: Local a confirmar")
	assert.Contains(t, msg.TextBody, "sábado, 14 de novembro de 2026 às 21:00")
	assert.Contains(t, msg.TextBody, "Concerto acústico")
	assert.Contains(t, msg.HTMLBody, "<strong>Coisa Mansa</strong>")
	assert.True(t, strings.Contains(msg.HTMLBody, "Adicionar ao Google Calendar"))
}

func TestCalendarURL(t *testing.T) {
	a := AnnouncementFromEvent(publishedEvent())
	got := a.CalendarURL()
	assert.True(t, strings.HasPrefix(got, "https://calendar.google.com/calendar/render?action=TEMPLATE&text=Rock%20Night&"))
	assert.Contains(t, got, "&dates=20261114T210000Z/20261114T230000Z&")
	assert.Contains(t, got, "&location=")

	end := a.StartsAt.Add(90 * time.Minute)
	a.EndsAt = &end
	a.Location = "Lisboa & Porto"
	got = a.CalendarURL()
	assert.Contains(t, got, "&dates=20261114T210000Z/20261114T223000Z&")
	assert.True(t, strings.HasSuffix(got, "&location=Lisboa%20%26%20Porto"))
}
