// Package worker runs the asynchronous ticket-email queue. Delivery is
// decoupled from the request path: registration latency never depends
// on the email provider, and email failures never roll back a
// confirmed registration.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/astraietm/registration/internal/mailer"
	"github.com/astraietm/registration/internal/model"
)

const deliveryAttempts = 3

// MailQueue is a bounded in-process queue drained by a fixed pool of
// delivery workers. It implements service.TicketNotifier.
type MailQueue struct {
	mailer  mailer.Mailer
	log     *slog.Logger
	ch      chan mailer.Ticket
	workers int

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewMailQueue constructs a queue with the given buffer size and
// worker count.
func NewMailQueue(m mailer.Mailer, log *slog.Logger, size, workers int) *MailQueue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &MailQueue{
		mailer:  m,
		log:     log,
		ch:      make(chan mailer.Ticket, size),
		workers: workers,
	}
}

// Start launches the delivery workers. ctx bounds individual delivery
// attempts, not the queue lifetime; use Close to drain and stop.
func (q *MailQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for t := range q.ch {
				q.deliver(ctx, t)
			}
		}()
	}
}

// QueueTicket enqueues a confirmation email without blocking the
// caller. A full queue drops the ticket with an error log; the seat is
// already committed and must not be held hostage to email capacity.
func (q *MailQueue) QueueTicket(reg model.Registration, event model.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.log.Error("mail queue closed, dropping ticket email",
			"registration_id", reg.ID, "event_id", event.ID)
		return
	}
	select {
	case q.ch <- mailer.Ticket{Registration: reg, Event: event}:
	default:
		q.log.Error("mail queue full, dropping ticket email",
			"registration_id", reg.ID, "event_id", event.ID)
	}
}

// Close stops intake, drains queued tickets and waits for the workers.
func (q *MailQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// deliver attempts a send with bounded retries. Failures are
// observability events only.
func (q *MailQueue) deliver(ctx context.Context, t mailer.Ticket) {
	var err error
	for attempt := 1; attempt <= deliveryAttempts; attempt++ {
		if err = q.mailer.SendTicket(ctx, t); err == nil {
			q.log.Info("ticket email sent",
				"registration_id", t.Registration.ID,
				"recipient", t.Registration.UserEmail)
			return
		}
		q.log.Warn("ticket email attempt failed",
			"attempt", attempt,
			"registration_id", t.Registration.ID,
			"error", err)
		if attempt < deliveryAttempts {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
	q.log.Error("ticket email given up",
		"registration_id", t.Registration.ID,
		"recipient", t.Registration.UserEmail,
		"error", err)
}
