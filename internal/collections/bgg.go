package collections

import (
	"context"

	"github.com/DanielHemmis/BggCollections/internal/catalog"
	"github.com/DanielHemmis/BggCollections/internal/metadata"
	"github.com/DanielHemmis/BggCollections/pkg/bgg"
)

type collectionClient interface {
	Collection(ctx context.Context, username string) ([]bgg.CollectionItem, error)
}

type thingClient interface {
	Things(ctx context.Context, ids []int64) ([]bgg.Thing, error)
}

// BGGSource reads owned games from BoardGameGeek collections.
type BGGSource struct {
	client collectionClient
}

// NewBGGSource adapts a BGG client to Source.
func NewBGGSource(client collectionClient) *BGGSource {
	return &BGGSource{client: client}
}

// FetchOwned returns each owned game once. BGG lists a game once per copy,
// so repeats keep the highest play count.
func (s *BGGSource) FetchOwned(ctx context.Context, username string) ([]catalog.RawOwnedItem, error) {
	items, err := s.client.Collection(ctx, username)
	if err != nil {
		return nil, err
	}

	out := make([]catalog.RawOwnedItem, 0, len(items))
	index := make(map[catalog.GameID]int, len(items))
	for _, item := range items {
		id := catalog.GameID(item.ObjectID)
		if pos, ok := index[id]; ok {
			if item.NumPlays > out[pos].PlayCount {
				out[pos].PlayCount = item.NumPlays
			}
			continue
		}
		index[id] = len(out)
		out = append(out, catalog.RawOwnedItem{GameID: id, PlayCount: item.NumPlays})
	}
	return out, nil
}

// BGGLookup serves metadata batches from the BGG thing endpoint.
type BGGLookup struct {
	client thingClient
}

// NewBGGLookup adapts a BGG client to metadata.Lookup.
func NewBGGLookup(client thingClient) *BGGLookup {
	return &BGGLookup{client: client}
}

// LookupBatch splits ids to the endpoint limit and returns whatever was
// fetched before the first failing request alongside its error.
func (l *BGGLookup) LookupBatch(ctx context.Context, ids []catalog.GameID) ([]catalog.GameMetadata, error) {
	out := make([]catalog.GameMetadata, 0, len(ids))
	for _, chunk := range metadata.Chunk(ids, bgg.MaxThingIDsPerRequest) {
		raw := make([]int64, len(chunk))
		for i, id := range chunk {
			raw[i] = int64(id)
		}
		things, err := l.client.Things(ctx, raw)
		if err != nil {
			return out, err
		}
		for _, thing := range things {
			out = append(out, toMetadata(thing))
		}
	}
	return out, nil
}

func toMetadata(thing bgg.Thing) catalog.GameMetadata {
	meta := catalog.GameMetadata{
		GameID:        catalog.GameID(thing.ID),
		Name:          thing.Name,
		Thumbnail:     thing.Thumbnail,
		Rank:          thing.Rank,
		RatingAverage: nonZero(thing.RatingAverage),
		AverageWeight: nonZero(thing.AverageWeight),
		MinPlayers:    thing.MinPlayers,
		MaxPlayers:    thing.MaxPlayers,
		PlayingTime:   thing.PlayingTime,
	}
	if thing.Expands != nil {
		base := catalog.GameID(*thing.Expands)
		meta.Expands = &base
	}
	return meta
}

// nonZero drops the 0 BGG reports for games nobody rated or weighed yet.
func nonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}
