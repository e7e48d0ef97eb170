package bgg

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	pkgerrors "github.com/DanielHemmis/BggCollections/pkg/errors"
)

const (
	linkTypeExpansion = "boardgameexpansion"
	rankNameBoardgame = "boardgame"
	nameTypePrimary   = "primary"
)

// CollectionItem is a single row of a user's collection.
type CollectionItem struct {
	ObjectID int64
	Name     string
	NumPlays int
	Owned    bool
}

// Thing is the subset of /thing metadata the aggregator uses. Numeric
// statistics that are absent or unparsable are nil.
type Thing struct {
	ID            int64
	Type          string
	Name          string
	Thumbnail     string
	MinPlayers    int
	MaxPlayers    int
	PlayingTime   int
	Rank          *float64
	RatingAverage *float64
	AverageWeight *float64
	Expands       *int64
}

type valueAttr struct {
	Value string `xml:"value,attr"`
}

type collectionXML struct {
	XMLName xml.Name            `xml:"items"`
	Items   []collectionItemXML `xml:"item"`
}

type collectionItemXML struct {
	ObjectID string `xml:"objectid,attr"`
	Name     string `xml:"name"`
	NumPlays string `xml:"numplays"`
	Status   struct {
		Own string `xml:"own,attr"`
	} `xml:"status"`
}

type thingsXML struct {
	XMLName xml.Name   `xml:"items"`
	Items   []thingXML `xml:"item"`
}

type thingXML struct {
	ID          string    `xml:"id,attr"`
	Type        string    `xml:"type,attr"`
	Thumbnail   string    `xml:"thumbnail"`
	Names       []nameXML `xml:"name"`
	MinPlayers  valueAttr `xml:"minplayers"`
	MaxPlayers  valueAttr `xml:"maxplayers"`
	PlayingTime valueAttr `xml:"playingtime"`
	Links       []linkXML `xml:"link"`
	Ratings     struct {
		Average       valueAttr `xml:"average"`
		AverageWeight valueAttr `xml:"averageweight"`
		Ranks         []rankXML `xml:"ranks>rank"`
	} `xml:"statistics>ratings"`
}

type nameXML struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type linkXML struct {
	Type    string `xml:"type,attr"`
	ID      string `xml:"id,attr"`
	Inbound string `xml:"inbound,attr"`
}

type rankXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type errorsXML struct {
	Messages []string `xml:"error>message"`
	Message  string   `xml:"message"`
}

func decodeCollection(body []byte) ([]CollectionItem, error) {
	if err := apiError(body); err != nil {
		return nil, err
	}
	var doc collectionXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode bgg collection")
	}

	items := make([]CollectionItem, 0, len(doc.Items))
	for _, raw := range doc.Items {
		id, err := strconv.ParseInt(strings.TrimSpace(raw.ObjectID), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		items = append(items, CollectionItem{
			ObjectID: id,
			Name:     strings.TrimSpace(raw.Name),
			NumPlays: atoi(raw.NumPlays),
			Owned:    strings.TrimSpace(raw.Status.Own) == "1",
		})
	}
	return items, nil
}

func decodeThings(body []byte) ([]Thing, error) {
	if err := apiError(body); err != nil {
		return nil, err
	}
	var doc thingsXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode bgg things")
	}

	things := make([]Thing, 0, len(doc.Items))
	for _, raw := range doc.Items {
		id, err := strconv.ParseInt(strings.TrimSpace(raw.ID), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		things = append(things, Thing{
			ID:            id,
			Type:          raw.Type,
			Name:          primaryName(raw.Names),
			Thumbnail:     strings.TrimSpace(raw.Thumbnail),
			MinPlayers:    atoi(raw.MinPlayers.Value),
			MaxPlayers:    atoi(raw.MaxPlayers.Value),
			PlayingTime:   atoi(raw.PlayingTime.Value),
			Rank:          boardgameRank(raw.Ratings.Ranks),
			RatingAverage: parseFloat(raw.Ratings.Average.Value),
			AverageWeight: parseFloat(raw.Ratings.AverageWeight.Value),
			Expands:       expandsBase(raw.Links),
		})
	}
	return things, nil
}

// apiError detects the <errors> and <error> documents BGG returns with a
// 200 status, for example for unknown users.
func apiError(body []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "errors" && start.Name.Local != "error" {
			return nil
		}
		var doc errorsXML
		_ = dec.DecodeElement(&doc, &start)
		msg := doc.Message
		if len(doc.Messages) > 0 {
			msg = doc.Messages[0]
		}
		msg = strings.TrimSpace(msg)
		if msg == "" {
			msg = "bgg returned an error document"
		}
		code := pkgerrors.CodeDependency
		if strings.Contains(strings.ToLower(msg), "invalid username") {
			code = pkgerrors.CodeNotFound
		}
		return pkgerrors.New(code, msg)
	}
}

func primaryName(names []nameXML) string {
	for _, n := range names {
		if n.Type == nameTypePrimary {
			return strings.TrimSpace(n.Value)
		}
	}
	if len(names) > 0 {
		return strings.TrimSpace(names[0].Value)
	}
	return ""
}

func boardgameRank(ranks []rankXML) *float64 {
	for _, r := range ranks {
		if r.Name == rankNameBoardgame {
			return parseFloat(r.Value)
		}
	}
	return nil
}

// expandsBase returns the first base game an expansion is attached to.
func expandsBase(links []linkXML) *int64 {
	for _, l := range links {
		if l.Type != linkTypeExpansion || l.Inbound != "true" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(l.ID), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		return &id
	}
	return nil
}

func parseFloat(raw string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	return &v
}

func atoi(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}
