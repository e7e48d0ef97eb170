package aggregation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/DanielHemmis/BggCollections/internal/catalog"
	"github.com/DanielHemmis/BggCollections/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog answers lookups from a fixed set of metadata.
type fakeCatalog struct {
	games   map[catalog.GameID]catalog.GameMetadata
	failIDs map[catalog.GameID]bool
	panicOn map[catalog.GameID]bool
}

func (f *fakeCatalog) LookupBatch(_ context.Context, ids []catalog.GameID) ([]catalog.GameMetadata, error) {
	out := make([]catalog.GameMetadata, 0, len(ids))
	for _, id := range ids {
		if f.panicOn[id] {
			panic("lookup exploded")
		}
		if f.failIDs[id] {
			return nil, errors.New("bgg timeout")
		}
		if meta, ok := f.games[id]; ok {
			out = append(out, meta)
		}
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }

func newService(t *testing.T, lookup metadata.Lookup, batchSize, workers int) *Service {
	t.Helper()
	resolver, err := metadata.NewResolver(metadata.ResolverParams{Lookup: lookup, BatchSize: batchSize})
	require.NoError(t, err)
	service, err := NewService(ServiceParams{Resolver: resolver, Workers: workers})
	require.NoError(t, err)
	return service
}

func exampleCatalog() *fakeCatalog {
	return &fakeCatalog{games: map[catalog.GameID]catalog.GameMetadata{
		10: {GameID: 10, Name: "Brass: Birmingham", Rank: ptr(1.0), RatingAverage: ptr(8.61), AverageWeight: ptr(3.87), MinPlayers: 2, MaxPlayers: 4, PlayingTime: 120},
		11: {GameID: 11, Name: "Brass: Iron Clays", Expands: ptr(catalog.GameID(10))},
	}}
}

func TestRunMergesOwnersAndAttachesExpansion(t *testing.T) {
	service := newService(t, exampleCatalog(), 20, 4)

	report := service.Run(context.Background(), []UserCollection{
		{Username: "A", Items: []catalog.RawOwnedItem{{GameID: 10, PlayCount: 3}}},
		{Username: "B", Items: []catalog.RawOwnedItem{{GameID: 10, PlayCount: 5}, {GameID: 11, PlayCount: 2}}},
	})

	require.Len(t, report.Games, 1, "no standalone record for the expansion")
	game := report.Games[0]
	assert.Equal(t, catalog.GameID(10), game.GameID)
	assert.Equal(t, 8, game.TotalPlays)
	assert.Equal(t, []string{"A", "B"}, game.Owners)
	require.Len(t, game.Expansions, 1)
	assert.Equal(t, "Brass: Iron Clays", game.Expansions[0].Name)
	assert.Equal(t, "1", game.Rank)
	assert.Equal(t, "8.6", game.Rating)
	assert.Equal(t, "3.9", game.Weight)
	assert.Empty(t, report.Orphans)
	assert.Empty(t, report.Skipped)
}

func TestRunResolvesExpansionSeenBeforeBase(t *testing.T) {
	// A single worker processes users in order, so the expansion owner runs first.
	service := newService(t, exampleCatalog(), 20, 1)

	report := service.Run(context.Background(), []UserCollection{
		{Username: "exp-owner", Items: []catalog.RawOwnedItem{{GameID: 11}}},
		{Username: "base-owner", Items: []catalog.RawOwnedItem{{GameID: 10, PlayCount: 1}}},
	})

	require.Len(t, report.Games, 1)
	require.Len(t, report.Games[0].Expansions, 1)
	assert.Equal(t, catalog.GameID(11), report.Games[0].Expansions[0].GameID)
	assert.Equal(t, []string{"base-owner"}, report.Games[0].Owners)
	assert.Empty(t, report.Orphans)
}

func TestRunLeavesOrphanExpansionsOut(t *testing.T) {
	lookup := &fakeCatalog{games: map[catalog.GameID]catalog.GameMetadata{
		30: {GameID: 30, Name: "Root"},
		21: {GameID: 21, Name: "Orphaned Expansion", Expands: ptr(catalog.GameID(20))},
	}}
	service := newService(t, lookup, 20, 2)

	report := service.Run(context.Background(), []UserCollection{
		{Username: "A", Items: []catalog.RawOwnedItem{{GameID: 30}, {GameID: 21}}},
	})

	require.Len(t, report.Games, 1)
	assert.Equal(t, catalog.GameID(30), report.Games[0].GameID)
	assert.Empty(t, report.Games[0].Expansions)
	assert.Equal(t, []catalog.GameID{20}, report.Orphans)
}

func TestRunSkipsEmptyCollections(t *testing.T) {
	service := newService(t, exampleCatalog(), 20, 2)

	report := service.Run(context.Background(), []UserCollection{
		{Username: "empty"},
		{Username: "A", Items: []catalog.RawOwnedItem{{GameID: 10, PlayCount: 1}}},
	})

	assert.Equal(t, []string{"empty"}, report.Skipped)
	require.Len(t, report.Games, 1)
	assert.Equal(t, []string{"A"}, report.Games[0].Owners)
}

func TestRunWithNothingReturnsEmptyCatalog(t *testing.T) {
	service := newService(t, exampleCatalog(), 20, 2)

	report := service.Run(context.Background(), nil)
	assert.NotNil(t, report.Games)
	assert.Empty(t, report.Games)

	report = service.Run(context.Background(), []UserCollection{{Username: "ghost", Items: []catalog.RawOwnedItem{{GameID: 999}}}})
	assert.Empty(t, report.Games)
	assert.Equal(t, 1, report.Missing)
}

func TestRunToleratesFailedBatchesAndPanics(t *testing.T) {
	lookup := &fakeCatalog{
		games: map[catalog.GameID]catalog.GameMetadata{
			1: {GameID: 1, Name: "Agricola"},
			2: {GameID: 2, Name: "Bohnanza"},
			3: {GameID: 3, Name: "Carcassonne"},
		},
		failIDs: map[catalog.GameID]bool{2: true},
		panicOn: map[catalog.GameID]bool{66: true},
	}
	service := newService(t, lookup, 1, 3)

	report := service.Run(context.Background(), []UserCollection{
		{Username: "A", Items: []catalog.RawOwnedItem{{GameID: 1}, {GameID: 2}, {GameID: 3}}},
		{Username: "boom", Items: []catalog.RawOwnedItem{{GameID: 66}}},
		{Username: "C", Items: []catalog.RawOwnedItem{{GameID: 3, PlayCount: 4}}},
	})

	var names []string
	for _, game := range report.Games {
		names = append(names, game.Name)
	}
	assert.Equal(t, []string{"Agricola", "Carcassonne"}, names)
	assert.Equal(t, 1, report.Missing, "game 2 is dropped after its batch failed")
	assert.Equal(t, 4, report.Games[1].TotalPlays)
}

func TestRunIsDeterministic(t *testing.T) {
	lookup := &fakeCatalog{games: map[catalog.GameID]catalog.GameMetadata{}}
	var users []UserCollection
	for g := 1; g <= 60; g++ {
		id := catalog.GameID(g)
		meta := catalog.GameMetadata{GameID: id, Name: fmt.Sprintf("Game %02d", g%17)}
		if g%6 == 0 {
			meta.Expands = ptr(catalog.GameID(g - 1))
			meta.Name = fmt.Sprintf("Expansion %02d", g)
		}
		lookup.games[id] = meta
	}
	for u := 0; u < 8; u++ {
		user := UserCollection{Username: fmt.Sprintf("user-%d", u)}
		for g := 1; g <= 60; g++ {
			if (g+u)%3 != 0 {
				user.Items = append(user.Items, catalog.RawOwnedItem{GameID: catalog.GameID(g), PlayCount: u})
			}
		}
		users = append(users, user)
	}

	first := newService(t, lookup, 7, 8).Run(context.Background(), users)
	for i := 0; i < 5; i++ {
		again := newService(t, lookup, 7, 8).Run(context.Background(), users)
		require.Equal(t, first.Games, again.Games)
		require.Equal(t, first.Orphans, again.Orphans)
	}

	seen := map[catalog.GameID]bool{}
	for _, game := range first.Games {
		require.False(t, seen[game.GameID])
		seen[game.GameID] = true
	}
}

func TestRunReportsProgressPerUser(t *testing.T) {
	resolver, err := metadata.NewResolver(metadata.ResolverParams{Lookup: exampleCatalog(), BatchSize: 1})
	require.NoError(t, err)

	var mu sync.Mutex
	calls := map[string]int{}
	service, err := NewService(ServiceParams{
		Resolver: resolver,
		Progress: func(username string, resolved, total int) {
			mu.Lock()
			defer mu.Unlock()
			calls[username]++
		},
	})
	require.NoError(t, err)

	service.Run(context.Background(), []UserCollection{
		{Username: "A", Items: []catalog.RawOwnedItem{{GameID: 10}, {GameID: 11}}},
	})
	assert.Equal(t, 2, calls["A"])
}

func TestNewServiceRequiresResolver(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
