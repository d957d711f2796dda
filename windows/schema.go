package windows

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
	"golang.org/x/net/html"
	"golang.org/x/xerrors"
)

const (
	lifecycleDocument      = "lifecycle"
	releaseHistoryDocument = "release history"

	// The pages only give a date; builds are recorded at 18:00 UTC.
	releaseHour = 18
)

// Schema selects how the Microsoft Learn pages are read. Every schema
// produces the same records; they differ in how tolerant they are of
// changes to the page markup.
type Schema string

const (
	// SchemaPattern matches the pages with position-anchored regular expressions.
	SchemaPattern Schema = "pattern"
	// SchemaMarkup walks the parsed HTML tree with CSS selectors.
	SchemaMarkup Schema = "markup"
)

var extractors = map[Schema]extractor{
	SchemaPattern: patternExtractor{},
	SchemaMarkup:  markupExtractor{},
}

// Schemas lists the supported schema names.
func Schemas() []string {
	names := lo.Map(lo.Keys(extractors), func(s Schema, _ int) string { return string(s) })
	slices.Sort(names)
	return names
}

func ParseSchema(s string) (Schema, error) {
	schema := Schema(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := extractors[schema]; !ok {
		return "", xerrors.Errorf("unknown document schema %q (supported: %s)", s, strings.Join(Schemas(), ", "))
	}
	return schema, nil
}

var buildNumberRegex = regexp.MustCompile(`^\d+(?:\.\d+)*$`)

// unreadableRowError reports a build table row that does not have the
// four expected cells.
func unreadableRowError(release string) error {
	return &ParseError{Document: releaseHistoryDocument, Reason: fmt.Sprintf("release %s has a build row that could not be read", release)}
}

type lifecycleRow struct {
	releaseName string
	endDate     string
}

type historyRow struct {
	channels    string
	releaseDate string
	buildNumber string
	kbURL       string
	kbID        string
	// text of a support article cell that holds no link
	kbText string
}

type historyBlock struct {
	releaseName    string
	osBuild        string
	endOfServicing bool
	rows           []historyRow
}

type extractor interface {
	// lifecycleRows returns the number of "Releases" tables found and their rows in document order.
	lifecycleRows(content string) (int, []lifecycleRow, error)
	releaseBlocks(content string) ([]historyBlock, error)
}

func (s Schema) extractor() (extractor, error) {
	e, ok := extractors[s]
	if !ok {
		return nil, xerrors.Errorf("unknown document schema %q", string(s))
	}
	return e, nil
}

// ParseLifecycle extracts the end-of-life date of every release listed in
// the "Releases" tables of a lifecycle page. A page may hold more than one
// such table; the rows of all of them are returned in document order.
func (s Schema) ParseLifecycle(content string) ([]LifecycleRecord, error) {
	e, err := s.extractor()
	if err != nil {
		return nil, err
	}
	tables, rows, err := e.lifecycleRows(content)
	if err != nil {
		return nil, err
	}
	if tables == 0 {
		return nil, &ParseError{Document: lifecycleDocument, Reason: "no Releases table found"}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Document: lifecycleDocument, Reason: fmt.Sprintf("no release rows found in %d Releases table(s)", tables)}
	}

	var records []LifecycleRecord
	seen := map[string]time.Time{}
	for _, row := range rows {
		eol, err := time.Parse(time.RFC3339, row.endDate)
		if err != nil {
			return nil, &ParseError{Document: lifecycleDocument, Reason: fmt.Sprintf("invalid end date %q for %s", row.endDate, row.releaseName)}
		}
		if prev, ok := seen[row.releaseName]; ok {
			if !prev.Equal(eol) {
				return nil, &ParseError{Document: lifecycleDocument,
					Reason: fmt.Sprintf("conflicting end dates for %s: %s and %s", row.releaseName, prev.Format(time.RFC3339), eol.Format(time.RFC3339))}
			}
			continue
		}
		seen[row.releaseName] = eol
		records = append(records, LifecycleRecord{ReleaseName: row.releaseName, EndOfLifeDate: eol})
	}
	return records, nil
}

// ParseReleaseHistory extracts every feature update block and its quality
// update builds from a release history page, in document order.
func (s Schema) ParseReleaseHistory(content string) ([]ReleaseBlock, error) {
	e, err := s.extractor()
	if err != nil {
		return nil, err
	}
	raw, err := e.releaseBlocks(content)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &ParseError{Document: releaseHistoryDocument, Reason: "no releases found"}
	}

	blocks := make([]ReleaseBlock, 0, len(raw))
	names := map[string]struct{}{}
	for _, rb := range raw {
		if _, ok := names[rb.releaseName]; ok {
			return nil, &ParseError{Document: releaseHistoryDocument, Reason: fmt.Sprintf("release %s is listed twice", rb.releaseName)}
		}
		names[rb.releaseName] = struct{}{}

		block := ReleaseBlock{
			ReleaseName:    rb.releaseName,
			OSBuild:        rb.osBuild,
			EndOfServicing: rb.endOfServicing,
			Builds:         make([]Build, 0, len(rb.rows)),
		}
		for _, row := range rb.rows {
			build, err := row.build()
			if err != nil {
				return nil, xerrors.Errorf("release %s: %w", rb.releaseName, err)
			}
			block.Builds = append(block.Builds, build)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func (row historyRow) build() (Build, error) {
	channels, err := NormalizeChannels(row.channels)
	if err != nil {
		return Build{}, err
	}

	day, err := dateparse.ParseIn(strings.TrimSpace(row.releaseDate), time.UTC)
	if err != nil {
		return Build{}, &ParseError{Document: releaseHistoryDocument, Reason: fmt.Sprintf("invalid release date %q", row.releaseDate)}
	}
	y, m, d := day.Date()

	build := Build{
		BuildNumber:       cleanText(row.buildNumber),
		ServicingChannels: channels,
		ReleaseDate:       time.Date(y, m, d, releaseHour, 0, 0, 0, time.UTC),
	}
	if build.BuildNumber == "" {
		return Build{}, &ParseError{Document: releaseHistoryDocument, Reason: "empty build number"}
	}
	if !buildNumberRegex.MatchString(build.BuildNumber) {
		return Build{}, &ParseError{Document: releaseHistoryDocument, Reason: fmt.Sprintf("invalid build number %q", build.BuildNumber)}
	}

	if row.kbURL == "" && row.kbID == "" {
		if cleanText(row.kbText) != "" {
			return Build{}, &ParseError{Document: releaseHistoryDocument,
				Reason: fmt.Sprintf("support article cell without a link for build %s: %q", build.BuildNumber, cleanText(row.kbText))}
		}
		return build, nil
	}
	kbURL := html.UnescapeString(strings.TrimSpace(row.kbURL))
	u, err := url.Parse(kbURL)
	if err != nil || !u.IsAbs() {
		return Build{}, &ParseError{Document: releaseHistoryDocument, Reason: fmt.Sprintf("invalid support article URL %q for build %s", row.kbURL, build.BuildNumber)}
	}
	kbID := cleanText(row.kbID)
	if kbID == "" {
		return Build{}, &ParseError{Document: releaseHistoryDocument, Reason: fmt.Sprintf("support article link without an ID for build %s", build.BuildNumber)}
	}
	build.KBArticle = &KBArticle{ID: kbID, URL: kbURL}
	return build, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}
