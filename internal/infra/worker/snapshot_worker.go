package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/http/middleware"
)

type SnapshotRefresher interface {
	RefreshSnapshots(ctx context.Context, ownerID string, leads []entity.Lead) (int, error)
}

// SnapshotWorker periodically rewrites stage lead snapshots that drifted from
// the lead directory.
type SnapshotWorker struct {
	pipelines    entity.PipelineRepository
	leads        entity.LeadRepositoryInterface
	refresher    SnapshotRefresher
	tickInterval time.Duration
	log          *logrus.Entry
}

func NewSnapshotWorker(pipelines entity.PipelineRepository, leads entity.LeadRepositoryInterface, refresher SnapshotRefresher, interval time.Duration, log *logrus.Entry) *SnapshotWorker {
	return &SnapshotWorker{
		pipelines:    pipelines,
		leads:        leads,
		refresher:    refresher,
		tickInterval: interval,
		log:          log.WithField("component", "snapshot_worker"),
	}
}

func (w *SnapshotWorker) Start(ctx context.Context) {
	w.log.WithField("interval", w.tickInterval).Info("snapshot worker started")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("snapshot worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce refreshes every owner and returns the number of rewritten snapshots.
func (w *SnapshotWorker) RunOnce(ctx context.Context) int {
	owners, err := w.pipelines.Owners(ctx)
	if err != nil {
		w.log.WithError(err).Error("failed to list pipeline owners")
		return 0
	}

	total := 0
	for _, owner := range owners {
		leads, err := w.leads.List(ctx, owner)
		if err != nil {
			w.log.WithError(err).WithField("owner", owner).Warn("failed to list leads")
			continue
		}
		n, err := w.refresher.RefreshSnapshots(ctx, owner, leads)
		if err != nil {
			w.log.WithError(err).WithField("owner", owner).Warn("failed to refresh snapshots")
		}
		total += n
	}

	if total > 0 {
		middleware.RecordSnapshotsRefreshed(total)
		w.log.WithField("count", total).Info("lead snapshots refreshed")
	}
	return total
}
