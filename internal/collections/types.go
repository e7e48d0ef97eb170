package collections

import (
	"context"

	"github.com/DanielHemmis/BggCollections/internal/catalog"
)

// MaxUsernames caps how many collections one request may combine.
const MaxUsernames = 25

// Skip reasons reported per user.
const (
	ReasonEmpty       = "empty_collection"
	ReasonNotFound    = "user_not_found"
	ReasonFetchFailed = "fetch_failed"
)

// Source fetches the games a user owns.
type Source interface {
	FetchOwned(ctx context.Context, username string) ([]catalog.RawOwnedItem, error)
}

// SkippedUser is a user that contributed nothing to the catalog.
type SkippedUser struct {
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

// Result is the combined catalog for one request.
type Result struct {
	RunID   string                     `json:"run_id"`
	Users   []string                   `json:"users"`
	Games   []catalog.MergedGameRecord `json:"games"`
	Skipped []SkippedUser              `json:"skipped"`
	Orphans []catalog.GameID           `json:"orphans"`
	Missing int                        `json:"missing_metadata"`
}
