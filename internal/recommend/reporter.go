package recommend

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/Compass/internal/hermes"
	"github.com/MikeSquared-Agency/Compass/internal/store"
)

// Reporter publishes periodic attempt statistics and follows catalog
// updates announced by the seeding tool.
type Reporter struct {
	store    store.Store
	hermes   hermes.Client
	interval time.Duration
	logger   *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewReporter(s store.Store, h hermes.Client, interval time.Duration, logger *slog.Logger) *Reporter {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reporter{
		store:    s,
		hermes:   h,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (r *Reporter) Start(ctx context.Context) {
	if r.hermes == nil {
		return
	}
	r.wg.Add(1)
	go r.statsLoop(ctx)
}

func (r *Reporter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Reporter) statsLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.publishStats(ctx)
		}
	}
}

func (r *Reporter) publishStats(ctx context.Context) {
	stats, err := r.store.GetStats(ctx)
	if err != nil {
		r.logger.Error("failed to get stats", "error", err)
		return
	}
	if err := r.hermes.Publish(hermes.SubjectStats, hermes.StatsEvent{
		TotalAttempts:      stats.TotalAttempts,
		CompletedAttempts:  stats.CompletedAttempts,
		InProgressAttempts: stats.InProgressAttempts,
		Timestamp:          time.Now().UTC(),
	}); err != nil {
		r.logger.Warn("failed to publish stats", "error", err)
	}
}

// SetupSubscriptions registers NATS subscriptions for catalog events.
func (r *Reporter) SetupSubscriptions() {
	if r.hermes == nil {
		return
	}
	err := r.hermes.Subscribe(hermes.SubjectCatalogUpdated, func(_ string, data []byte) {
		var evt hermes.CatalogUpdatedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			r.logger.Warn("invalid catalog updated event", "error", err)
			return
		}
		r.handleCatalogUpdated(evt)
	})
	if err != nil {
		r.logger.Warn("failed to subscribe", "subject", hermes.SubjectCatalogUpdated, "error", err)
	}
}

// Catalogs are loaded per request, so an update needs no invalidation here.
func (r *Reporter) handleCatalogUpdated(evt hermes.CatalogUpdatedEvent) {
	catalogUpdatesTotal.Inc()
	r.logger.Info("catalog updated",
		"criteria", evt.Criteria,
		"questions", evt.Questions,
		"majors", evt.Majors,
	)
}
