package windows

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/net/html"
)

var (
	channelNames = map[string]string{
		"LTSB": "Long-Term Servicing Branch",
		"LTSC": "Long-Term Servicing Channel",
		"CB":   "Current Branch",
		"CBB":  "Current Branch for Business",

		"Semi-Annual Channel":            "Semi-Annual Channel",
		"Semi-Annual Channel (Targeted)": "Semi-Annual Channel (Targeted)",
		"General Availability Channel":   "General Availability Channel",
	}

	// The release history pages have used each of these for the separator.
	bulletSeparator = regexp.MustCompile(`(?i)•|&bull;|&#8226;|&#x2022;`)
)

// NormalizeChannel maps a servicing channel label to its canonical name.
func NormalizeChannel(label string) (string, error) {
	name, ok := channelNames[label]
	if !ok {
		return "", &UnknownVocabularyError{Label: label}
	}
	return name, nil
}

// NormalizeChannels splits a servicing channel cell on its bullet separators
// and normalizes every label. Duplicates are dropped, order is kept.
func NormalizeChannels(cell string) ([]string, error) {
	var channels []string
	for _, raw := range bulletSeparator.Split(cell, -1) {
		// Fields also splits on the no-break spaces left by &nbsp;
		label := strings.Join(strings.Fields(html.UnescapeString(raw)), " ")
		name, err := NormalizeChannel(label)
		if err != nil {
			return nil, err
		}
		channels = append(channels, name)
	}
	return lo.Uniq(channels), nil
}
