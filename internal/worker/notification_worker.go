package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

const defaultQueueSize = 256

// NotificationWorker moves notification delivery off the request path.
// Events are queued by the dispatcher subscription and handled by a single
// goroutine. A full queue drops the event with a warning.
type NotificationWorker struct {
	notifications *service.NotificationService
	logger        *zap.Logger
	queue         chan events.Event
	cancel        context.CancelFunc
	done          chan struct{}
	stopOnce      sync.Once
}

// StartNotificationWorker subscribes the worker to every event type the
// notification service handles and starts the delivery loop. It returns nil
// when either collaborator is missing.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, notifications *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	if dispatcher == nil || notifications == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &NotificationWorker{
		notifications: notifications,
		logger:        logger,
		queue:         make(chan events.Event, defaultQueueSize),
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	for _, eventType := range notifications.Subscriptions() {
		dispatcher.Subscribe(eventType, w.enqueue(ctx))
	}

	go w.run(ctx)
	return w
}

func (w *NotificationWorker) enqueue(ctx context.Context) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		select {
		case w.queue <- event:
		default:
			w.logger.Warn("notification queue full; event dropped",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
		return nil
	}
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case event := <-w.queue:
			w.handle(event)
		}
	}
}

// drain delivers whatever is already queued at shutdown.
func (w *NotificationWorker) drain() {
	for {
		select {
		case event := <-w.queue:
			w.handle(event)
		default:
			return
		}
	}
}

func (w *NotificationWorker) handle(event events.Event) {
	// request contexts are gone by the time events are delivered
	if err := w.notifications.Handle(context.Background(), event); err != nil {
		w.logger.Warn("notification failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

// Stop ends the delivery loop after flushing queued events. Safe to call
// more than once and on a nil worker.
func (w *NotificationWorker) Stop() {
	if w == nil {
		return
	}
	w.stopOnce.Do(func() {
		w.cancel()
		<-w.done
	})
}
