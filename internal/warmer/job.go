package warmer

import (
	"context"
	"fmt"

	"github.com/DanielHemmis/BggCollections/internal/collections"
	"github.com/DanielHemmis/BggCollections/pkg/logger"
)

type aggregator interface {
	Aggregate(ctx context.Context, usernames []string) (collections.Result, error)
}

// CollectionsJob aggregates a fixed user list so every game they own has
// fresh metadata in the cache before anyone asks for it.
type CollectionsJob struct {
	svc       aggregator
	usernames []string
	logg      *logger.Logger
}

func NewCollectionsJob(svc aggregator, usernames []string, logg *logger.Logger) (*CollectionsJob, error) {
	if svc == nil {
		return nil, fmt.Errorf("collections service required")
	}
	if len(usernames) == 0 {
		return nil, fmt.Errorf("at least one username required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CollectionsJob{svc: svc, usernames: usernames, logg: logg}, nil
}

func (j *CollectionsJob) Name() string { return "collections.warm" }

func (j *CollectionsJob) Run(ctx context.Context) error {
	result, err := j.svc.Aggregate(ctx, j.usernames)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"run_id":  result.RunID,
		"games":   len(result.Games),
		"skipped": len(result.Skipped),
	}), "collections warmed")
	if len(result.Skipped) == len(result.Users) {
		return fmt.Errorf("no collection could be fetched")
	}
	return nil
}
