package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/DanielHemmis/BggCollections/internal/catalog"
	"github.com/DanielHemmis/BggCollections/internal/collections"
)

// Format selects an output rendering.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatHTML  Format = "html"
)

var columns = []string{
	"Game Name", "Total Plays", "BGG Rank", "Average Rating", "Average Weight",
	"Min Players", "Max Players", "Playtime (min)", "Owners", "Expansions",
}

// ParseFormat maps a flag value to a Format.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatTable, FormatJSON, FormatHTML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or html)", value)
	}
}

// Write renders result to w.
func Write(w io.Writer, format Format, result collections.Result) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatHTML:
		return pageTemplate.Execute(w, pageData{Columns: columns, Rows: rows(result.Games)})
	default:
		return writeTable(w, result)
	}
}

func writeTable(w io.Writer, result collections.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, row := range rows(result.Games) {
		fmt.Fprintln(tw, strings.Join(row.cells(), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, skipped := range result.Skipped {
		if _, err := fmt.Fprintf(w, "skipped %s: %s\n", skipped.Username, skipped.Reason); err != nil {
			return err
		}
	}
	return nil
}

type row struct {
	Name        string
	Link        string
	Thumbnail   string
	TotalPlays  int
	Rank        string
	Rating      string
	Weight      string
	MinPlayers  int
	MaxPlayers  int
	PlayingTime int
	Owners      string
	Expansions  []catalog.ExpansionRef
}

func (r row) cells() []string {
	names := make([]string, len(r.Expansions))
	for i, exp := range r.Expansions {
		names[i] = exp.Name
	}
	return []string{
		r.Name,
		strconv.Itoa(r.TotalPlays),
		r.Rank,
		r.Rating,
		r.Weight,
		strconv.Itoa(r.MinPlayers),
		strconv.Itoa(r.MaxPlayers),
		strconv.Itoa(r.PlayingTime),
		r.Owners,
		strings.Join(names, "; "),
	}
}

func rows(games []catalog.MergedGameRecord) []row {
	out := make([]row, len(games))
	for i, g := range games {
		out[i] = row{
			Name:        g.Name,
			Link:        g.Link,
			Thumbnail:   g.Thumbnail,
			TotalPlays:  g.TotalPlays,
			Rank:        g.Rank,
			Rating:      g.Rating,
			Weight:      g.Weight,
			MinPlayers:  g.MinPlayers,
			MaxPlayers:  g.MaxPlayers,
			PlayingTime: g.PlayingTime,
			Owners:      strings.Join(g.Owners, ", "),
			Expansions:  g.Expansions,
		}
	}
	return out
}

type pageData struct {
	Columns []string
	Rows    []row
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Combined board game collection</title>
<style>
table { width: 100%; border-collapse: collapse; }
th, td { text-align: left; padding: 8px; border: 1px solid #ddd; }
th { background-color: #f2f2f2; }
img { max-height: 48px; }
</style>
</head>
<body>
<table id="gameTable">
<thead><tr><th></th>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{if .Thumbnail}}<img src="{{.Thumbnail}}" alt="">{{end}}</td>
<td><a href="{{.Link}}">{{.Name}}</a></td>
<td>{{.TotalPlays}}</td>
<td>{{.Rank}}</td>
<td>{{.Rating}}</td>
<td>{{.Weight}}</td>
<td>{{.MinPlayers}}</td>
<td>{{.MaxPlayers}}</td>
<td>{{.PlayingTime}}</td>
<td>{{.Owners}}</td>
<td>{{range $i, $e := .Expansions}}{{if $i}}<br>{{end}}<a href="{{$e.Link}}">{{$e.Name}}</a>{{end}}</td>
</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))
