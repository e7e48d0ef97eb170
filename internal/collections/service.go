package collections

import (
	"context"
	"strings"

	"github.com/DanielHemmis/BggCollections/internal/aggregation"
	"github.com/DanielHemmis/BggCollections/internal/catalog"
	pkgerrors "github.com/DanielHemmis/BggCollections/pkg/errors"
	"github.com/DanielHemmis/BggCollections/pkg/logger"
	"github.com/DanielHemmis/BggCollections/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type coordinator interface {
	Run(ctx context.Context, users []aggregation.UserCollection) aggregation.Report
}

// ServiceParams groups dependencies for the collections service.
type ServiceParams struct {
	Source      Source
	Coordinator coordinator
	// FetchWorkers bounds concurrent collection downloads. Zero fetches one
	// user at a time.
	FetchWorkers int
	Logger       *logger.Logger
	Metrics      *metrics.AggregationMetrics
}

// Service fetches the users' collections and aggregates them.
type Service interface {
	Aggregate(ctx context.Context, usernames []string) (Result, error)
}

type service struct {
	source       Source
	coordinator  coordinator
	fetchWorkers int
	logg         *logger.Logger
	metrics      *metrics.AggregationMetrics
}

// NewService builds a collections service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection source is required")
	}
	if params.Coordinator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "aggregation coordinator is required")
	}
	workers := params.FetchWorkers
	if workers <= 0 {
		workers = 1
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		source:       params.Source,
		coordinator:  params.Coordinator,
		fetchWorkers: workers,
		logg:         logg,
		metrics:      params.Metrics,
	}, nil
}

// Aggregate builds the combined catalog for usernames. Users whose
// collection cannot be fetched are reported in Result.Skipped; only invalid
// input is an error.
func (s *service) Aggregate(ctx context.Context, usernames []string) (Result, error) {
	users, err := NormalizeUsernames(usernames)
	if err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	ctx = s.logg.WithRunID(ctx, runID)
	s.logg.Info(s.logg.WithField(ctx, "users", strings.Join(users, ",")), "aggregation requested")

	fetched := make([]aggregation.UserCollection, len(users))
	failures := make([]*SkippedUser, len(users))

	var g errgroup.Group
	g.SetLimit(s.fetchWorkers)
	for i, username := range users {
		g.Go(func() error {
			items, err := s.source.FetchOwned(ctx, username)
			if err != nil {
				failures[i] = &SkippedUser{Username: username, Reason: skipReason(err)}
				userCtx := s.logg.WithUsername(ctx, username)
				s.logg.Warn(s.logg.WithField(userCtx, "error", err.Error()), "collection fetch failed; skipping user")
				return nil
			}
			fetched[i] = aggregation.UserCollection{Username: username, Items: items}
			return nil
		})
	}
	_ = g.Wait()

	collected := make([]aggregation.UserCollection, 0, len(users))
	skipped := make([]SkippedUser, 0)
	for i := range users {
		if failures[i] != nil {
			s.metrics.IncSkipped()
			skipped = append(skipped, *failures[i])
			continue
		}
		collected = append(collected, fetched[i])
	}

	report := s.coordinator.Run(ctx, collected)
	for _, name := range report.Skipped {
		skipped = append(skipped, SkippedUser{Username: name, Reason: ReasonEmpty})
	}

	games := report.Games
	if games == nil {
		games = []catalog.MergedGameRecord{}
	}
	orphans := report.Orphans
	if orphans == nil {
		orphans = []catalog.GameID{}
	}
	return Result{
		RunID:   runID,
		Users:   users,
		Games:   games,
		Skipped: skipped,
		Orphans: orphans,
		Missing: report.Missing,
	}, nil
}

// NormalizeUsernames trims names, splits comma separated entries, drops
// blanks and case-insensitive duplicates while keeping the first spelling
// and the input order.
func NormalizeUsernames(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			name := strings.TrimSpace(part)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one username is required")
	}
	if len(out) > MaxUsernames {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many usernames").
			WithDetails(map[string]any{"max": MaxUsernames, "got": len(out)})
	}
	return out, nil
}

func skipReason(err error) string {
	if pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
		return ReasonNotFound
	}
	return ReasonFetchFailed
}
