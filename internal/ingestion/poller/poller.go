// Package poller drives the ingestion pipeline on a fixed interval. One check
// cycle runs to completion before the next tick is considered, so candidates
// are never processed against a moving watermark.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeypot-card-monitor/internal/config"
	"github.com/honeypot-card-monitor/internal/domain/transaction"
	"github.com/honeypot-card-monitor/internal/ingestion/service"
	"github.com/honeypot-card-monitor/internal/platform/upstream"
)

// EventProcessor runs one candidate event through the ingestion pipeline
type EventProcessor interface {
	ProcessEvent(ctx context.Context, raw json.RawMessage) (service.Outcome, error)
}

// WatermarkStore is the slice of the transaction store the poller reads
type WatermarkStore interface {
	LatestTimestamp(ctx context.Context) (*time.Time, error)
	Stats(ctx context.Context) (*transaction.Stats, error)
}

// Poller polls the upstream processor and feeds new events to the pipeline
type Poller struct {
	upstream      upstream.Client
	store         WatermarkStore
	processor     EventProcessor
	logger        *slog.Logger
	interval      time.Duration
	defaultWindow time.Duration
}

func NewPoller(
	cfg *config.PollerConfig,
	upstreamClient upstream.Client,
	store WatermarkStore,
	processor EventProcessor,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		upstream:      upstreamClient,
		store:         store,
		processor:     processor,
		logger:        logger,
		interval:      cfg.Interval,
		defaultWindow: cfg.DefaultWindow,
	}
}

// Start begins polling until the context is canceled. Failures within a cycle
// are logged and retried on the next tick, never propagated.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting transaction poller",
		"interval", p.interval.String(),
		"default_window", p.defaultWindow.String(),
	)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Transaction poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.logger.Debug("Poller tick: checking for new transactions")
			if err := p.CheckCycle(ctx); err != nil {
				p.logger.Error("Check cycle failed", "error", err)
			}
		}
	}
}

// CheckCycle runs one poll cycle: read the watermark, fetch candidates, and
// process them oldest-first so alerts preserve temporal order.
func (p *Poller) CheckCycle(ctx context.Context) error {
	begin, err := p.queryWindow(ctx)
	if err != nil {
		return fmt.Errorf("failed to determine poll window: %w", err)
	}

	events, err := p.upstream.ListTransactions(ctx, &begin)
	if err != nil {
		return fmt.Errorf("failed to fetch upstream transactions: %w", err)
	}

	if len(events) == 0 {
		p.logger.Debug("No candidate events this cycle")
		return nil
	}

	p.logger.Debug("Fetched candidate events", "count", len(events))

	// Upstream returns newest-first; walk the batch in reverse so
	// earlier events are persisted and alerted before later ones.
	saved := 0
	for i := len(events) - 1; i >= 0; i-- {
		outcome, err := p.processor.ProcessEvent(ctx, events[i])
		if err != nil {
			// A persistence failure may be store-wide; abort the remainder of
			// the cycle. The watermark derives from persisted rows, so the
			// skipped candidates are re-fetched on the next tick.
			return fmt.Errorf("aborting cycle after persistence failure: %w", err)
		}
		if outcome == service.OutcomeSaved {
			saved++
		}
	}

	if saved > 0 {
		p.logStats(ctx, saved)
	}

	return nil
}

func (p *Poller) queryWindow(ctx context.Context) (time.Time, error) {
	watermark, err := p.store.LatestTimestamp(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if watermark != nil {
		return *watermark, nil
	}
	return time.Now().Add(-p.defaultWindow), nil
}

// logStats recomputes aggregates after a cycle that saved at least one
// transaction. A recomputation failure is logged and never fails the cycle.
func (p *Poller) logStats(ctx context.Context, saved int) {
	stats, err := p.store.Stats(ctx)
	if err != nil {
		p.logger.Warn("Failed to recompute transaction statistics", "error", err)
		return
	}
	p.logger.Info("Cycle statistics",
		"saved_this_cycle", saved,
		"total_count", stats.Count,
		"approval_rate", stats.ApprovalRate,
		"average_amount", stats.AverageAmount,
	)
}
