package catalog

import "strconv"

const gameLinkBase = "https://boardgamegeek.com/boardgame/"

// GameID is the BoardGameGeek object id of a game or expansion.
type GameID int64

func (id GameID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Link returns the public BoardGameGeek page for the game.
func (id GameID) Link() string {
	return gameLinkBase + id.String()
}

// RawOwnedItem is one owned entry of a user's collection.
type RawOwnedItem struct {
	GameID    GameID
	PlayCount int
}

// GameMetadata is what the metadata source knows about a single game.
// Optional numbers are nil when the source had no usable value.
type GameMetadata struct {
	GameID        GameID   `json:"game_id"`
	Name          string   `json:"name"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	Rank          *float64 `json:"rank,omitempty"`
	RatingAverage *float64 `json:"rating_average,omitempty"`
	AverageWeight *float64 `json:"average_weight,omitempty"`
	MinPlayers    int      `json:"min_players"`
	MaxPlayers    int      `json:"max_players"`
	PlayingTime   int      `json:"playing_time"`
	// Expands holds the base game id for expansions. Only the first base
	// game an expansion declares is kept.
	Expands *GameID `json:"expands,omitempty"`
}

// ExpansionRef is how an expansion is shown on its base game's row.
type ExpansionRef struct {
	GameID GameID `json:"game_id"`
	Name   string `json:"name"`
	Link   string `json:"link"`
}

func refFor(meta GameMetadata) ExpansionRef {
	return ExpansionRef{
		GameID: meta.GameID,
		Name:   meta.Name,
		Link:   meta.GameID.Link(),
	}
}

// MergedGameRecord is one row of the combined catalog.
type MergedGameRecord struct {
	GameID      GameID         `json:"game_id"`
	Name        string         `json:"name"`
	Link        string         `json:"link"`
	Thumbnail   string         `json:"thumbnail"`
	Rank        string         `json:"rank"`
	Rating      string         `json:"rating"`
	Weight      string         `json:"weight"`
	MinPlayers  int            `json:"min_players"`
	MaxPlayers  int            `json:"max_players"`
	PlayingTime int            `json:"playing_time"`
	TotalPlays  int            `json:"total_plays"`
	Owners      []string       `json:"owners"`
	Expansions  []ExpansionRef `json:"expansions"`
}

// HasOwner reports whether owner already contributed to the record.
func (r *MergedGameRecord) HasOwner(owner string) bool {
	for _, existing := range r.Owners {
		if existing == owner {
			return true
		}
	}
	return false
}

// HasExpansion reports whether the expansion is already attached.
func (r *MergedGameRecord) HasExpansion(id GameID) bool {
	for _, existing := range r.Expansions {
		if existing.GameID == id {
			return true
		}
	}
	return false
}

func (r *MergedGameRecord) clone() MergedGameRecord {
	out := *r
	out.Owners = append([]string(nil), r.Owners...)
	out.Expansions = append([]ExpansionRef{}, r.Expansions...)
	return out
}
