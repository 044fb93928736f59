package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/eventhub-backend/internal/users"
	"github.com/angelmondragon/eventhub-backend/pkg/config"
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/email"
	"github.com/angelmondragon/eventhub-backend/pkg/logger"
	"github.com/angelmondragon/eventhub-backend/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const kindEventPublished = "event_published"

var (
	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is closed")
)

type recipientSource interface {
	ListRecipients(ctx context.Context, after uuid.UUID, limit int) ([]users.Recipient, error)
}

type sendRecorder interface {
	Inc(kind, result string)
}

type DispatcherParams struct {
	Recipients recipientSource
	Sender     email.Sender
	Renderer   *Renderer
	Config     config.NotificationsConfig
	Metrics    sendRecorder
	Logger     *logger.Logger
}

type delivery struct {
	to           users.Recipient
	announcement Announcement
}

// Dispatcher fans event announcements out to every user. Publishing never
// blocks the caller: announcements go on a bounded queue, one goroutine pages
// through recipients and a fixed pool of workers sends at a capped rate.
// Delivery failures are logged and counted, never returned.
type Dispatcher struct {
	recipients  recipientSource
	sender      email.Sender
	renderer    *Renderer
	limiter     *rate.Limiter
	batchSize   int
	sendTimeout time.Duration
	metrics     sendRecorder
	logg        *logger.Logger

	announcements chan Announcement
	deliveries    chan delivery

	mu     sync.RWMutex
	closed bool

	runCtx    context.Context
	cancelRun context.CancelFunc
	fanout    sync.WaitGroup
	workers   sync.WaitGroup
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Recipients == nil {
		return nil, fmt.Errorf("recipient source required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	cfg := params.Config
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("notification workers must be positive")
	}
	if cfg.RatePerSecond <= 0 {
		return nil, fmt.Errorf("notification rate must be positive")
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("notification queue size must be positive")
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 200
	}
	renderer := params.Renderer
	if renderer == nil {
		renderer = NewRenderer("", nil)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	runCtx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		recipients:    params.Recipients,
		sender:        params.Sender,
		renderer:      renderer,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		batchSize:     batch,
		sendTimeout:   cfg.SendTimeout,
		metrics:       params.Metrics,
		logg:          logg,
		announcements: make(chan Announcement, cfg.QueueSize),
		deliveries:    make(chan delivery, cfg.Workers),
		runCtx:        runCtx,
		cancelRun:     cancel,
	}

	d.fanout.Add(1)
	go d.runFanout()
	for i := 0; i < cfg.Workers; i++ {
		d.workers.Add(1)
		go d.runWorker()
	}
	return d, nil
}

// NotifyEventPublished queues an announcement for every user.
func (d *Dispatcher) NotifyEventPublished(ctx context.Context, event *models.Event) error {
	if event == nil {
		return fmt.Errorf("event required")
	}
	a := AnnouncementFromEvent(event)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.announcements <- a:
		d.logg.Debug(d.logg.WithField(ctx, "event_id", a.EventID), "event announcement queued")
		return nil
	default:
		d.record(metrics.ResultDropped)
		return ErrQueueFull
	}
}

// Close stops accepting announcements and waits for queued mail to go out.
// If ctx ends first, in-flight sends are canceled and ctx's error returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.announcements)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.fanout.Wait()
		d.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancelRun()
		return nil
	case <-ctx.Done():
		d.cancelRun()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) runFanout() {
	defer d.fanout.Done()
	defer close(d.deliveries)
	for a := range d.announcements {
		if err := d.broadcast(a); err != nil {
			d.logg.Error(d.logg.WithField(d.runCtx, "event_id", a.EventID), "event announcement fan-out failed", err)
		}
	}
}

func (d *Dispatcher) broadcast(a Announcement) error {
	after := uuid.Nil
	for {
		batch, err := d.recipients.ListRecipients(d.runCtx, after, d.batchSize)
		if err != nil {
			return fmt.Errorf("list recipients: %w", err)
		}
		for _, to := range batch {
			select {
			case d.deliveries <- delivery{to: to, announcement: a}:
			case <-d.runCtx.Done():
				return d.runCtx.Err()
			}
		}
		if len(batch) < d.batchSize {
			return nil
		}
		after = batch[len(batch)-1].ID
	}
}

func (d *Dispatcher) runWorker() {
	defer d.workers.Done()
	for job := range d.deliveries {
		d.deliver(job)
	}
}

func (d *Dispatcher) deliver(job delivery) {
	ctx := d.logg.WithFields(d.runCtx, map[string]any{
		"event_id":  job.announcement.EventID,
		"recipient": job.to.Email,
	})
	if err := d.limiter.Wait(d.runCtx); err != nil {
		d.record(metrics.ResultDropped)
		return
	}

	msg, err := d.renderer.EventPublished(job.to, job.announcement)
	if err != nil {
		d.record(metrics.ResultFailed)
		d.logg.Error(ctx, "render event announcement", err)
		return
	}

	sendCtx := d.runCtx
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(d.runCtx, d.sendTimeout)
		defer cancel()
	}
	if err := d.sender.Send(sendCtx, msg); err != nil {
		d.record(metrics.ResultFailed)
		d.logg.Error(ctx, "send event announcement", err)
		return
	}
	d.record(metrics.ResultSent)
}

func (d *Dispatcher) record(result string) {
	if d.metrics != nil {
		d.metrics.Inc(kindEventPublished, result)
	}
}
