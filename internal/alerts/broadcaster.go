package alerts

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/honeypot-card-monitor/internal/domain/merchant"
	"github.com/honeypot-card-monitor/internal/domain/subscription"
	"github.com/honeypot-card-monitor/internal/domain/transaction"
)

// SubscriberDirectory is the slice of the registry the broadcaster needs
type SubscriberDirectory interface {
	SubscribersOf(cardToken string) []subscription.Subscriber
	RecordProbe(sessionID string, passed bool)
}

// FirehosePublisher mirrors every alert onto an external stream. A nil
// publisher disables the mirror.
type FirehosePublisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// pendingAlert is one queued delivery. The session handle is captured at
// broadcast time so a rebind mid-queue does not redirect older alerts.
type pendingAlert struct {
	sessionID string
	session   subscription.Session
	token     string
	payload   []byte
}

// sessionQueue is the FIFO of undelivered alerts for one session. active
// marks that a pool worker currently owns the queue.
type sessionQueue struct {
	pending []pendingAlert
	active  bool
}

// Broadcaster delivers alerts for persisted transactions to every session
// watching the card token. Each session has its own FIFO drained by at most
// one worker at a time, so a listener always observes alerts in the order
// they were persisted; distinct sessions still deliver in parallel on the
// shared pool, and one failed send never blocks or skips the others.
type Broadcaster struct {
	directory SubscriberDirectory
	pool      *ants.Pool
	firehose  FirehosePublisher
	logger    *slog.Logger

	mu     sync.Mutex
	queues map[string]*sessionQueue
}

func NewBroadcaster(
	directory SubscriberDirectory,
	pool *ants.Pool,
	firehose FirehosePublisher,
	logger *slog.Logger,
) *Broadcaster {
	return &Broadcaster{
		directory: directory,
		pool:      pool,
		firehose:  firehose,
		logger:    logger,
		queues:    make(map[string]*sessionQueue),
	}
}

// Broadcast fans the transaction out to current watchers of its card token.
// The caller has already persisted the transaction; nothing here can undo
// that, so every failure is logged and swallowed.
func (b *Broadcaster) Broadcast(ctx context.Context, txn *transaction.Transaction, m *merchant.Merchant) {
	alert := NewAlert(txn, m)
	payload, err := json.Marshal(alert)
	if err != nil {
		b.logger.Error("Failed to encode alert", "token", txn.Token, "error", err)
		return
	}

	subscribers := b.directory.SubscribersOf(txn.CardToken)
	if len(subscribers) == 0 {
		b.logger.Debug("No sessions watching card, alert dropped",
			"token", txn.Token,
			"card_token", txn.CardToken,
		)
	}

	for _, sub := range subscribers {
		b.enqueue(pendingAlert{
			sessionID: sub.SessionID,
			session:   sub.Session,
			token:     txn.Token,
			payload:   payload,
		})
	}

	if b.firehose != nil {
		if err := b.firehose.Publish(ctx, txn.CardToken, payload); err != nil {
			b.logger.Warn("Failed to publish alert to firehose",
				"token", txn.Token,
				"error", err,
			)
		}
	}
}

// enqueue appends the alert to the session's FIFO and, if no worker owns the
// queue yet, submits one to drain it.
func (b *Broadcaster) enqueue(alert pendingAlert) {
	b.mu.Lock()
	q, ok := b.queues[alert.sessionID]
	if !ok {
		q = &sessionQueue{}
		b.queues[alert.sessionID] = q
	}
	q.pending = append(q.pending, alert)
	if q.active {
		b.mu.Unlock()
		return
	}
	q.active = true
	b.mu.Unlock()

	sessionID := alert.sessionID
	task := func() { b.drain(sessionID, q) }
	if err := b.pool.Submit(task); err != nil {
		// Pool exhausted or closed; drain inline rather than drop
		b.logger.Warn("Alert pool rejected task, delivering inline",
			"session_id", sessionID,
			"error", err,
		)
		task()
	}
}

// drain delivers the session's queued alerts oldest-first until the queue is
// empty, then releases ownership so the next broadcast starts a fresh worker.
func (b *Broadcaster) drain(sessionID string, q *sessionQueue) {
	for {
		b.mu.Lock()
		if len(q.pending) == 0 {
			q.active = false
			delete(b.queues, sessionID)
			b.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		b.mu.Unlock()

		b.deliver(next)
	}
}

func (b *Broadcaster) deliver(alert pendingAlert) {
	if alert.session == nil || !alert.session.IsLive() {
		b.directory.RecordProbe(alert.sessionID, false)
		b.logger.Warn("Skipping alert delivery to dead session",
			"session_id", alert.sessionID,
			"token", alert.token,
		)
		return
	}

	if err := alert.session.Send(alert.payload); err != nil {
		b.directory.RecordProbe(alert.sessionID, false)
		b.logger.Warn("Failed to deliver alert",
			"session_id", alert.sessionID,
			"token", alert.token,
			"error", err,
		)
		return
	}

	b.directory.RecordProbe(alert.sessionID, true)
	b.logger.Debug("Delivered alert",
		"session_id", alert.sessionID,
		"token", alert.token,
	)
}
