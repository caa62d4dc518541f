package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"pricecase/internal/util"
)

var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "tr": true, "li": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func HasTable(markup string) bool {
	return strings.Contains(strings.ToLower(markup), "<table")
}

// HTMLGrids returns one grid per table. Rows of nested tables belong to the
// nested grid only.
func HTMLGrids(markup string) ([]Grid, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	out := []Grid{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		grid := Grid{}
		table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
			return tr.Closest("table").IsSelection(table)
		}).Each(func(_ int, tr *goquery.Selection) {
			cells := []string{}
			tr.ChildrenFiltered("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.NormalizeSpaces(cell.Text()))
			})
			grid.Rows = append(grid.Rows, cells)
		})
		if len(grid.Rows) > 0 {
			out = append(out, grid)
		}
	})
	return out, nil
}

// StripHTML renders the visible text of markup. Tags become spaces, block
// tags become line breaks, script and style content is dropped.
func StripHTML(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return util.NormalizeLines(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
	}
}
