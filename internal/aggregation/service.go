package aggregation

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/DanielHemmis/BggCollections/internal/catalog"
	"github.com/DanielHemmis/BggCollections/internal/metadata"
	"github.com/DanielHemmis/BggCollections/pkg/logger"
	"github.com/DanielHemmis/BggCollections/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// UserCollection is one user's owned games as returned by the fetch layer.
type UserCollection struct {
	Username string
	Items    []catalog.RawOwnedItem
}

// Report is the outcome of one run.
type Report struct {
	// Games is the sorted catalog. It is empty, never nil, when nothing
	// could be aggregated.
	Games []catalog.MergedGameRecord
	// Skipped lists users with empty collections.
	Skipped []string
	// Orphans lists base games that queued expansions were still waiting
	// for when the run finished.
	Orphans []catalog.GameID
	// Missing counts owned games dropped for lack of metadata.
	Missing int
}

type resolver interface {
	Resolve(ctx context.Context, ids []catalog.GameID, progress metadata.ProgressFunc) metadata.Result
}

// ProgressFunc observes per-user metadata progress.
type ProgressFunc func(username string, resolved, total int)

// ServiceParams configure the coordinator.
type ServiceParams struct {
	Resolver resolver
	Workers  int
	Logger   *logger.Logger
	Metrics  *metrics.AggregationMetrics
	Progress ProgressFunc
}

// Service runs one aggregation task per user and merges the results into a
// single catalog.
type Service struct {
	resolver resolver
	workers  int
	logg     *logger.Logger
	metrics  *metrics.AggregationMetrics
	progress ProgressFunc
}

// NewService builds the coordinator.
func NewService(params ServiceParams) (*Service, error) {
	if params.Resolver == nil {
		return nil, fmt.Errorf("metadata resolver required")
	}
	workers := params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		resolver: params.Resolver,
		workers:  workers,
		logg:     logg,
		metrics:  params.Metrics,
		progress: params.Progress,
	}, nil
}

// Run aggregates the users' collections. Every user task runs to completion
// whatever happens to the others, and nothing in here fails the run: the
// worst case is an empty catalog.
func (s *Service) Run(ctx context.Context, users []UserCollection) Report {
	start := time.Now()
	report := Report{}

	valid := make([]UserCollection, 0, len(users))
	order := make([]string, 0, len(users))
	for _, user := range users {
		if len(user.Items) == 0 {
			s.logg.Warn(s.logg.WithUsername(ctx, user.Username), "collection empty; skipping user")
			s.metrics.IncSkipped()
			report.Skipped = append(report.Skipped, user.Username)
			continue
		}
		valid = append(valid, user)
		order = append(order, user.Username)
	}

	store := catalog.NewStore(catalog.WithOwnerOrder(order))
	var missing atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, user := range valid {
		g.Go(func() error {
			missing.Add(int64(s.runUser(ctx, store, user)))
			return nil
		})
	}
	_ = g.Wait()

	report.Games = store.Snapshot()
	report.Orphans = store.PendingBases()
	report.Missing = int(missing.Load())
	s.metrics.AddOrphans(len(report.Orphans))
	s.metrics.ObserveRun(time.Since(start))

	runCtx := s.logg.WithFields(ctx, map[string]any{
		"users":       len(valid),
		"skipped":     len(report.Skipped),
		"games":       len(report.Games),
		"orphans":     len(report.Orphans),
		"missing":     report.Missing,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	s.logg.Info(runCtx, "aggregation complete")
	return report
}

// runUser resolves one user's metadata and folds it into store. It returns
// the number of owned games that had no metadata.
func (s *Service) runUser(ctx context.Context, store *catalog.Store, user UserCollection) (missing int) {
	userCtx := s.logg.WithUsername(ctx, user.Username)
	defer func() {
		if rec := recover(); rec != nil {
			s.logg.Error(userCtx, "user aggregation panicked", fmt.Errorf("panic: %v", rec))
		}
	}()

	ids := make([]catalog.GameID, 0, len(user.Items))
	for _, item := range user.Items {
		ids = append(ids, item.GameID)
	}
	s.logg.Info(s.logg.WithField(userCtx, "games", len(ids)), "resolving metadata")

	var progress metadata.ProgressFunc
	if s.progress != nil {
		progress = func(resolved, total int) { s.progress(user.Username, resolved, total) }
	}
	result := s.resolver.Resolve(userCtx, ids, progress)
	if err := result.Err(); err != nil {
		s.logg.Warn(s.logg.WithField(userCtx, "failed_batches", len(result.Failures())), "some metadata batches failed")
	}

	for _, item := range user.Items {
		meta, ok := result.Get(item.GameID)
		if !ok {
			missing++
			s.metrics.IncMissing()
			s.logg.Warn(s.logg.WithGameID(userCtx, int64(item.GameID)), "no metadata found for game")
			continue
		}
		if c := catalog.Classify(meta); c.Kind == catalog.KindExpansion {
			store.AttachOrQueue(meta, c.BaseID)
			continue
		}
		store.MergeOwnedGame(item, meta, user.Username)
	}
	return missing
}
