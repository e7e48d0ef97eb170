package catalog

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	UnrankedSentinel     = "unranked"
	NotAvailableSentinel = "not available"
)

// FormatRank renders a rank as a whole number. Absent and non-finite
// values both collapse to UnrankedSentinel.
func FormatRank(rank *float64) string {
	if !finite(rank) {
		return UnrankedSentinel
	}
	return strconv.FormatInt(int64(*rank), 10)
}

// FormatOneDecimal renders ratings and weights rounded to one decimal place.
// Ties round half to even, so 7.25 renders as 7.2.
func FormatOneDecimal(value *float64) string {
	if !finite(value) {
		return NotAvailableSentinel
	}
	return decimal.NewFromFloat(*value).StringFixedBank(1)
}

func finite(value *float64) bool {
	return value != nil && !math.IsNaN(*value) && !math.IsInf(*value, 0)
}

func newRecord(meta GameMetadata, item RawOwnedItem, owner string) *MergedGameRecord {
	return &MergedGameRecord{
		GameID:      item.GameID,
		Name:        meta.Name,
		Link:        item.GameID.Link(),
		Thumbnail:   meta.Thumbnail,
		Rank:        FormatRank(meta.Rank),
		Rating:      FormatOneDecimal(meta.RatingAverage),
		Weight:      FormatOneDecimal(meta.AverageWeight),
		MinPlayers:  meta.MinPlayers,
		MaxPlayers:  meta.MaxPlayers,
		PlayingTime: meta.PlayingTime,
		TotalPlays:  max(item.PlayCount, 0),
		Owners:      []string{owner},
		Expansions:  []ExpansionRef{},
	}
}
