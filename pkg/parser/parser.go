package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/soil-health-extractor/models"
)

type Parser struct{}

// ParseDocument parses raw HTML with the lenient HTML5 algorithm, so
// unclosed cells, stray tags and missing tbody elements are tolerated.
func (p *Parser) ParseDocument(html []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// FindTables returns every table element in document order, nested tables included.
func (p *Parser) FindTables(doc *goquery.Document) *goquery.Selection {
	return doc.Find("table")
}

// ExtractTable converts one table element into a text grid.
//
// Rows are taken from the table's own thead, tbody and tfoot sections, never
// from tables nested inside its cells. Header rows are the thead rows, or
// failing that the leading body rows made only of th cells, or failing that
// the first row.
func (p *Parser) ExtractTable(s *goquery.Selection) *models.Table {
	removeHidden(s)

	headRows := sectionRows(s, "thead")
	bodyRows := sectionRows(s, "tbody")
	footRows := sectionRows(s, "tfoot")

	if len(headRows) == 0 {
		for len(bodyRows) > 0 && isAllHeaderCells(bodyRows[0]) {
			headRows = append(headRows, bodyRows[0])
			bodyRows = bodyRows[1:]
		}
	}

	head := expandSpans(headRows)
	body := append(expandSpans(bodyRows), expandSpans(footRows)...)

	// Fallback: first row
	if len(head) == 0 && len(body) > 0 {
		head = body[:1]
		body = body[1:]
	}

	return &models.Table{
		Headers: flattenHeader(head),
		Rows:    body,
	}
}

// sectionRows collects the tr elements of one section of s. Rows placed
// directly under the table are counted as body rows.
func sectionRows(s *goquery.Selection, section string) []*goquery.Selection {
	var rows []*goquery.Selection
	s.ChildrenFiltered(section).ChildrenFiltered("tr").Each(func(i int, tr *goquery.Selection) {
		rows = append(rows, tr)
	})
	if section == "tbody" {
		s.ChildrenFiltered("tr").Each(func(i int, tr *goquery.Selection) {
			rows = append(rows, tr)
		})
	}
	return rows
}

func rowCells(tr *goquery.Selection) *goquery.Selection {
	return tr.ChildrenFiltered("th,td")
}

func isAllHeaderCells(tr *goquery.Selection) bool {
	cells := rowCells(tr)
	if cells.Length() == 0 {
		return false
	}
	return cells.Length() == cells.Filter("th").Length()
}

// removeHidden drops descendants styled display:none, which browsers never render.
func removeHidden(s *goquery.Selection) {
	s.Find("[style]").FilterFunction(func(i int, el *goquery.Selection) bool {
		style, _ := el.Attr("style")
		style = strings.ToLower(strings.Join(strings.Fields(style), ""))
		return strings.Contains(style, "display:none")
	}).Remove()
}

type spanned struct {
	col  int
	text string
	left int // rows still to fill below the current one
}

// expandSpans turns rows into a grid where a cell with colspan=n appears n
// times in its row and a cell with rowspan=n reappears at the same column in
// the n-1 following rows. Spans running past the last row produce extra rows.
func expandSpans(rows []*goquery.Selection) [][]string {
	var grid [][]string
	var pending []spanned

	for _, tr := range rows {
		var texts []string
		var next []spanned
		col := 0

		take := func(sp spanned) {
			texts = append(texts, sp.text)
			if sp.left > 1 {
				next = append(next, spanned{col: sp.col, text: sp.text, left: sp.left - 1})
			}
			col++
		}

		rowCells(tr).Each(func(i int, td *goquery.Selection) {
			for len(pending) > 0 && pending[0].col <= col {
				take(pending[0])
				pending = pending[1:]
			}

			text := normalizeText(td.Text())
			rowspan := spanAttr(td, "rowspan")
			for n := spanAttr(td, "colspan"); n > 0; n-- {
				take(spanned{col: col, text: text, left: rowspan})
			}
		})
		for _, sp := range pending {
			take(sp)
		}

		grid = append(grid, texts)
		pending = next
	}

	for len(pending) > 0 {
		var texts []string
		var next []spanned
		for _, sp := range pending {
			texts = append(texts, sp.text)
			if sp.left > 1 {
				next = append(next, spanned{col: sp.col, text: sp.text, left: sp.left - 1})
			}
		}
		grid = append(grid, texts)
		pending = next
	}

	return grid
}

// spanAttr reads colspan or rowspan. Absent, malformed or non-positive values count as 1.
func spanAttr(td *goquery.Selection, name string) int {
	raw, ok := td.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// flattenHeader merges stacked header rows into one name per column by
// joining the distinct non-empty texts top to bottom.
func flattenHeader(head [][]string) []string {
	if len(head) == 0 {
		return nil
	}
	if len(head) == 1 {
		return head[0]
	}

	width := 0
	for _, row := range head {
		if len(row) > width {
			width = len(row)
		}
	}

	headers := make([]string, width)
	for i := 0; i < width; i++ {
		var parts []string
		seen := map[string]bool{}
		for _, row := range head {
			if i >= len(row) || row[i] == "" || seen[row[i]] {
				continue
			}
			seen[row[i]] = true
			parts = append(parts, row[i])
		}
		headers[i] = strings.Join(parts, " ")
	}
	return headers
}

// normalizeText collapses runs of whitespace, including newlines and
// non-breaking spaces, into single spaces and trims the ends.
func normalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
