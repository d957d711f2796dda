package windows

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/xerrors"
)

var (
	versionCellRegex   = regexp.MustCompile(`^Version (\S{4})$`)
	isoTimestampRegex  = regexp.MustCompile(isoTimestamp)
	releaseMarkerRegex = regexp.MustCompile(`^Version (\S{4})(?: \(RTM\))? \(OS build (\d+)\)(?: \(RTM\))?$`)

	inlineElements = map[string]bool{"em": true, "i": true, "span": true, "b": true}
)

// markupExtractor reads the pages through their HTML structure, so it does
// not depend on line breaks, indentation or attribute order.
type markupExtractor struct{}

func (markupExtractor) lifecycleRows(content string) (int, []lifecycleRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return 0, nil, xerrors.Errorf("failed to parse the lifecycle page: %w", err)
	}

	var (
		tables int
		rows   []lifecycleRow
	)
	doc.Find("h2").Each(func(_ int, heading *goquery.Selection) {
		if normalizeSpace(heading.Text()) != "Releases" {
			return
		}
		siblings := heading.NextUntil("h2")
		table := siblings.Filter("table").First()
		if table.Length() == 0 {
			table = siblings.Find("table").First()
		}
		if table.Length() == 0 {
			return
		}
		tables++

		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := tr.ChildrenFiltered("td")
			if cells.Length() < 3 {
				return
			}
			m := versionCellRegex.FindStringSubmatch(normalizeSpace(cells.Eq(0).Text()))
			if m == nil {
				return
			}
			start := isoTimestampRegex.FindString(cellSource(cells.Eq(1)))
			end := isoTimestampRegex.FindString(cellSource(cells.Eq(2)))
			if start == "" || end == "" {
				return
			}
			rows = append(rows, lifecycleRow{releaseName: m[1], endDate: end})
		})
	})
	return tables, rows, nil
}

func (markupExtractor) releaseBlocks(content string) ([]historyBlock, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, xerrors.Errorf("failed to parse the release history page: %w", err)
	}

	var (
		blocks  []historyBlock
		current *historyBlock
	)
	// "*" visits elements in document order, so a table is paired with the
	// closest release marker before it.
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "strong":
			m := releaseMarkerRegex.FindStringSubmatch(normalizeSpace(s.Text()))
			if m == nil {
				return
			}
			if current != nil {
				err = &ParseError{Document: releaseHistoryDocument, Reason: "release " + current.releaseName + " has no build table"}
			}
			current = &historyBlock{
				releaseName:    m[1],
				osBuild:        m[2],
				endOfServicing: followedByEndOfServicing(s),
			}
		case "table":
			if current == nil {
				return
			}
			if s.Find("tr").First().ChildrenFiltered("th").Length() != 4 {
				return
			}
			s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
				cells := tr.ChildrenFiltered("td")
				switch cells.Length() {
				case 0:
					return
				case 4:
				default:
					if err == nil {
						err = unreadableRowError(current.releaseName)
					}
					return
				}
				row := historyRow{
					channels:    cells.Eq(0).Text(),
					releaseDate: cells.Eq(1).Text(),
					buildNumber: cells.Eq(2).Text(),
				}
				if a := cells.Eq(3).Find("a[href]").First(); a.Length() > 0 {
					row.kbURL, _ = a.Attr("href")
					row.kbID = a.Text()
				} else {
					row.kbText = cells.Eq(3).Text()
				}
				current.rows = append(current.rows, row)
			})
			blocks = append(blocks, *current)
			current = nil
		}
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// cellSource returns the inner HTML of a cell, so timestamps kept in
// attributes such as <local-time datetime="..."> are visible to a regexp.
func cellSource(s *goquery.Selection) string {
	h, err := s.Html()
	if err != nil {
		return s.Text()
	}
	return h
}

// followedByEndOfServicing looks at the text right after a release marker,
// up to the next element that is not a line break.
func followedByEndOfServicing(marker *goquery.Selection) bool {
	for n := marker.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		switch {
		case n.Type == html.TextNode:
			if strings.Contains(n.Data, "End of servicing") {
				return true
			}
		case n.Type == html.ElementNode && n.Data == "br":
			continue
		case n.Type == html.ElementNode && inlineElements[n.Data]:
			return strings.Contains(goquery.NewDocumentFromNode(n).Text(), "End of servicing")
		case n.Type == html.ElementNode:
			return false
		}
	}
	return false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
