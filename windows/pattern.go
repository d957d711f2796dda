package windows

import (
	"fmt"
	"regexp"
	"strings"
)

const isoTimestamp = `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[-+]\d{2}:\d{2})`

var (
	lifecycleTableRegex = regexp.MustCompile(
		`<section>\n\s+<h2.+?>Releases</h2>\n\s+(?P<tableData>(?s:<table.+?>.+?</table>))`)

	lifecycleRowRegex = regexp.MustCompile(
		`<tr>\n\s+<td>Version (?P<versionNumber>.{4})</td>\n` +
			`\s+<td .+?>\n\s+.*(?P<startDate>` + isoTimestamp + `).+\n\s+</td>\n` +
			`\s+<td .+?>\n\s+.*(?P<endDate>` + isoTimestamp + `).*\n\s+</td>\n` +
			`\s+</tr>`)

	releaseRegex = regexp.MustCompile(
		`<strong>Version (?P<versionName>.{4})(?: \(RTM\))? \(OS build (?P<versionBuild>\d+)\)(?: \(RTM\))?</strong>` +
			`(?:\s*(?:<br\s*/?>)?\s*- (?P<isEoL>End of servicing))?` +
			`(?P<prelude>(?s:.+?))` +
			`<table[^>]*>\n<tr>(?:\s*<th>.+?</th>){4}\n\s*</tr>` +
			`(?P<tableData>(?s:.+?))\n</table>`)

	releaseTableRegex = regexp.MustCompile(
		`<tr>\n<td>(?P<servicingOption>.+?)</td>\n` +
			`<td>(?P<releaseDate>.+?)</td>\n` +
			`<td>(?P<buildNumber>.+?)</td>\n` +
			`<td>(?P<kbCell>.*?)</td>\n` +
			`</tr>`)

	tableRowRegex    = regexp.MustCompile(`<tr[\s>]`)
	supportLinkRegex = regexp.MustCompile(`<a href="(?P<supportArticleUrl>[^"]+)"[^>]*>(?P<kbArticleId>.+?)</a>`)
)

// patternExtractor expects the pages as Microsoft Learn renders them:
// one element per line and a fixed cell order.
type patternExtractor struct{}

func (patternExtractor) lifecycleRows(content string) (int, []lifecycleRow, error) {
	tables := lifecycleTableRegex.FindAllStringSubmatch(content, -1)

	var rows []lifecycleRow
	tableData := lifecycleTableRegex.SubexpIndex("tableData")
	version := lifecycleRowRegex.SubexpIndex("versionNumber")
	endDate := lifecycleRowRegex.SubexpIndex("endDate")
	for _, table := range tables {
		for _, m := range lifecycleRowRegex.FindAllStringSubmatch(table[tableData], -1) {
			rows = append(rows, lifecycleRow{
				releaseName: m[version],
				endDate:     m[endDate],
			})
		}
	}
	return len(tables), rows, nil
}

func (patternExtractor) releaseBlocks(content string) ([]historyBlock, error) {
	var (
		name      = releaseRegex.SubexpIndex("versionName")
		build     = releaseRegex.SubexpIndex("versionBuild")
		eol       = releaseRegex.SubexpIndex("isEoL")
		prelude   = releaseRegex.SubexpIndex("prelude")
		tableData = releaseRegex.SubexpIndex("tableData")

		channel = releaseTableRegex.SubexpIndex("servicingOption")
		date    = releaseTableRegex.SubexpIndex("releaseDate")
		number  = releaseTableRegex.SubexpIndex("buildNumber")
		kbCell  = releaseTableRegex.SubexpIndex("kbCell")

		kbURL = supportLinkRegex.SubexpIndex("supportArticleUrl")
		kbID  = supportLinkRegex.SubexpIndex("kbArticleId")
	)

	var blocks []historyBlock
	for _, m := range releaseRegex.FindAllStringSubmatch(content, -1) {
		// The lazy prelude runs on to the next table it finds. If that table
		// belongs to a later release, this release lost its own table.
		if strings.Contains(m[prelude], "<strong>Version ") {
			return nil, &ParseError{Document: releaseHistoryDocument,
				Reason: fmt.Sprintf("release %s has no build table", m[name])}
		}

		block := historyBlock{
			releaseName:    m[name],
			osBuild:        m[build],
			endOfServicing: m[eol] != "",
		}
		rows := releaseTableRegex.FindAllStringSubmatch(m[tableData], -1)
		if len(rows) != len(tableRowRegex.FindAllString(m[tableData], -1)) {
			return nil, unreadableRowError(m[name])
		}
		for _, r := range rows {
			row := historyRow{
				channels:    r[channel],
				releaseDate: r[date],
				buildNumber: r[number],
			}
			if link := supportLinkRegex.FindStringSubmatch(r[kbCell]); link != nil {
				row.kbURL, row.kbID = link[kbURL], link[kbID]
			} else {
				row.kbText = r[kbCell]
			}
			block.rows = append(block.rows, row)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
