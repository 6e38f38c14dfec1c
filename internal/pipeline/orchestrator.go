package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/dmoreira/transferwire/internal/alert"
	"github.com/dmoreira/transferwire/internal/dedup"
	"github.com/dmoreira/transferwire/internal/delivery"
	"github.com/dmoreira/transferwire/internal/filter"
	"github.com/dmoreira/transferwire/internal/format"
	"github.com/dmoreira/transferwire/internal/logging"
	"github.com/dmoreira/transferwire/internal/models"
	"github.com/dmoreira/transferwire/internal/ratelimit"
	"github.com/dmoreira/transferwire/internal/rewrite"
	"github.com/dmoreira/transferwire/internal/sources"
)

// RecordStore is the optional persistence hook for confirmed deliveries.
type RecordStore interface {
	Insert(ctx context.Context, record models.PostRecord) error
}

// Config bounds one orchestrator.
type Config struct {
	MaxConcurrentFetches int
	// OutageCycles is how many consecutive cycles with every source
	// failing trigger a systemic alert.
	OutageCycles int
	// DeliveryRetries bounds in-cycle retries of transient delivery
	// failures.
	DeliveryRetries int
	DeliveryBackoff time.Duration
}

// Orchestrator drives one poll cycle: concurrent fetch across all
// sources, then a serial tier-ordered pass of filter, dedup, rewrite,
// format, rate check and delivery.
type Orchestrator struct {
	cfg       Config
	monitors  []sources.Monitor
	filter    *filter.Filter
	guard     dedup.Guard
	limiter   *ratelimit.PostLimiter
	formatter *format.Formatter
	rewriter  rewrite.Rewriter
	publisher delivery.Publisher
	reporter  alert.Reporter
	store     RecordStore
	logger    *logging.Logger

	executor failsafe.Executor[string]

	mu            sync.Mutex
	history       []models.PostRecord
	failedCycles  int
	cyclesStarted int
}

func New(cfg Config, monitors []sources.Monitor, f *filter.Filter, guard dedup.Guard,
	limiter *ratelimit.PostLimiter, formatter *format.Formatter, rewriter rewrite.Rewriter,
	publisher delivery.Publisher, reporter alert.Reporter, store RecordStore,
	logger *logging.Logger) *Orchestrator {

	if cfg.MaxConcurrentFetches < 1 {
		cfg.MaxConcurrentFetches = 4
	}
	if cfg.OutageCycles < 1 {
		cfg.OutageCycles = 3
	}
	if cfg.DeliveryRetries < 0 {
		cfg.DeliveryRetries = 0
	}
	if cfg.DeliveryBackoff <= 0 {
		cfg.DeliveryBackoff = time.Second
	}
	if reporter == nil {
		reporter = alert.NopReporter{}
	}

	retry := retrypolicy.NewBuilder[string]().
		HandleIf(func(_ string, err error) bool {
			return delivery.IsTransient(err)
		}).
		WithMaxRetries(cfg.DeliveryRetries).
		WithBackoff(cfg.DeliveryBackoff, 30*time.Second).
		WithJitterFactor(0.1).
		Build()

	return &Orchestrator{
		cfg:       cfg,
		monitors:  monitors,
		filter:    f,
		guard:     guard,
		limiter:   limiter,
		formatter: formatter,
		rewriter:  rewriter,
		publisher: publisher,
		reporter:  reporter,
		store:     store,
		logger:    logger,
		executor:  failsafe.With(retry),
	}
}

// RunCycle executes one full cycle. Per-item failures are isolated: one
// item's failure never aborts the cycle or affects sibling items.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	o.mu.Lock()
	o.cyclesStarted++
	cycle := o.cyclesStarted
	o.mu.Unlock()

	o.logger.Debug("Cycle starting", logging.WithField("cycle", cycle))

	results := o.fetchAll(ctx)
	o.trackOutages(results)

	items := o.merge(results)
	delivered, skipped := o.process(ctx, items)

	o.guard.Prune(time.Now())

	o.logger.Info("Cycle complete", logging.WithFields(map[string]interface{}{
		"cycle":     cycle,
		"fetched":   len(items),
		"delivered": delivered,
		"skipped":   skipped,
	}))
}

// fetchAll polls every monitor concurrently under a bounded worker pool.
// Each worker only produces its own result; no shared mutation.
func (o *Orchestrator) fetchAll(ctx context.Context) []sources.FetchResult {
	var wg sync.WaitGroup
	results := make(chan sources.FetchResult, len(o.monitors))
	sem := make(chan struct{}, o.cfg.MaxConcurrentFetches)

	for _, monitor := range o.monitors {
		wg.Add(1)
		go func(m sources.Monitor) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			items, err := m.FetchRecent(ctx)
			results <- sources.FetchResult{
				Items:  items,
				Source: m.Source(),
				Err:    err,
			}
		}(monitor)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]sources.FetchResult, 0, len(o.monitors))
	for result := range results {
		if result.Err != nil {
			o.logger.Warn("Failed to fetch from source", logging.WithFields(map[string]interface{}{
				"source": result.Source.Handle,
				"error":  result.Err.Error(),
			}))
		} else {
			o.logger.Debug("Fetched items from source", logging.WithFields(map[string]interface{}{
				"source": result.Source.Handle,
				"count":  len(result.Items),
			}))
		}
		collected = append(collected, result)
	}
	return collected
}

// trackOutages escalates when every configured source fails for enough
// consecutive cycles.
func (o *Orchestrator) trackOutages(results []sources.FetchResult) {
	allFailed := len(results) > 0
	for _, r := range results {
		if r.Err == nil {
			allFailed = false
			break
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !allFailed {
		o.failedCycles = 0
		return
	}

	o.failedCycles++
	if o.failedCycles == o.cfg.OutageCycles {
		o.reporter.Report(alert.Event{
			Type:    models.EventFetchOutage,
			Message: "every source failed to fetch",
			Fields: map[string]interface{}{
				"consecutive_cycles": o.failedCycles,
				"sources":            len(results),
			},
		})
	}
}

type sourcedItem struct {
	item   models.ContentItem
	source models.Source
}

// merge flattens the fetch results into delivery order: source tier
// first, then item timestamp, so higher-tier sources are never starved
// by lower-tier ones when the daily cap is near.
func (o *Orchestrator) merge(results []sources.FetchResult) []sourcedItem {
	merged := make([]sourcedItem, 0)
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, item := range r.Items {
			merged = append(merged, sourcedItem{item: item, source: r.Source})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].source.Tier != merged[j].source.Tier {
			return merged[i].source.Tier < merged[j].source.Tier
		}
		return merged[i].item.PostedAt.Before(merged[j].item.PostedAt)
	})
	return merged
}

// process runs the serial stage of the cycle. It returns how many items
// were delivered and how many were skipped.
func (o *Orchestrator) process(ctx context.Context, items []sourcedItem) (delivered, skipped int) {
	for i, si := range items {
		decision := o.filter.Check(si.item, si.source)
		if !decision.OK {
			o.logger.Debug("Item filtered", logging.WithFields(map[string]interface{}{
				"id":     si.item.ID,
				"reason": string(decision.Reason),
			}))
			skipped++
			continue
		}

		if !o.guard.CheckAndMark(si.item.ID) {
			skipped++
			continue
		}

		rewritten, err := o.rewriter.Rewrite(ctx, si.item, si.source)
		if err != nil {
			o.logger.Warn("Rewrite failed, skipping item", logging.WithFields(map[string]interface{}{
				"id":     si.item.ID,
				"source": si.source.Handle,
				"error":  err.Error(),
			}))
			skipped++
			continue
		}

		trigger := o.formatter.ContainsTrigger(si.item.Text)
		processed := models.ProcessedItem{
			Item:      si.item,
			Source:    si.source,
			Rewritten: rewritten,
			Formatted: o.formatter.Format(si.source, rewritten, trigger),
			Band:      o.formatter.BandFor(si.source.Reliability).Name,
		}

		rate := o.limiter.Acquire(time.Now())
		if !rate.Allowed {
			o.logger.Debug("Rate limited", logging.WithFields(map[string]interface{}{
				"id":     si.item.ID,
				"reason": string(rate.Reason),
				"wait":   rate.Wait.String(),
			}))
			skipped++
			// Neither denial can clear within this serial pass, so
			// stop offering the rest of the batch: unmarked items
			// stay eligible for a future cycle.
			return delivered, skipped + len(items) - i - 1
		}

		if o.deliver(ctx, processed) {
			delivered++
		} else {
			skipped++
		}
	}
	return delivered, skipped
}

// deliver publishes one formatted item, retrying transient failures with
// bounded backoff inside the same cycle. Rate-limit state advances only
// after a confirmed success.
func (o *Orchestrator) deliver(ctx context.Context, pi models.ProcessedItem) bool {
	deliveryID, err := o.executor.WithContext(ctx).Get(func() (string, error) {
		return o.publisher.Publish(ctx, pi.Formatted)
	})
	if err != nil {
		if delivery.IsPermanent(err) {
			o.logger.Error("Permanent delivery failure, dropping item", logging.WithFields(map[string]interface{}{
				"id":    pi.Item.ID,
				"error": err.Error(),
			}))
			o.reporter.Report(alert.Event{
				Type:    models.EventDeliveryPermanent,
				Message: "delivery rejected permanently",
				Fields: map[string]interface{}{
					"content_id": pi.Item.ID,
					"source":     pi.Source.Handle,
					"error":      err.Error(),
				},
			})
		} else {
			o.logger.Error("Delivery failed after retries, dropping item", logging.WithFields(map[string]interface{}{
				"id":    pi.Item.ID,
				"error": err.Error(),
			}))
		}
		// The id stays marked in the dedup guard: failed items are
		// never retried in a later cycle.
		return false
	}

	now := time.Now()
	o.limiter.Commit(now)

	record := models.PostRecord{
		ContentID:  pi.Item.ID,
		DeliveryID: deliveryID,
		SourceID:   pi.Source.ID,
		PostedAt:   now,
	}

	o.mu.Lock()
	o.history = append(o.history, record)
	o.mu.Unlock()

	if o.store != nil {
		if err := o.store.Insert(ctx, record); err != nil {
			o.logger.Warn("Failed to persist post record", logging.WithFields(map[string]interface{}{
				"id":    pi.Item.ID,
				"error": err.Error(),
			}))
		}
	}

	o.logger.Info("Published item", logging.WithFields(map[string]interface{}{
		"id":          pi.Item.ID,
		"source":      pi.Source.Handle,
		"band":        pi.Band,
		"delivery_id": deliveryID,
	}))
	return true
}

// History returns a copy of the post records from this process lifetime.
func (o *Orchestrator) History() []models.PostRecord {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]models.PostRecord, len(o.history))
	copy(out, o.history)
	return out
}
