package windows

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	version "github.com/hashicorp/go-version"
	"golang.org/x/xerrors"
)

// MajorVersion is the major Windows release a feature update belongs to.
type MajorVersion int

const (
	Windows10 MajorVersion = 10
	Windows11 MajorVersion = 11
)

func (v MajorVersion) String() string {
	return fmt.Sprintf("windows%d", int(v))
}

// ParseMajorVersion accepts "10", "win10", "windows10" and "Windows 10" (and the 11 equivalents).
func ParseMajorVersion(s string) (MajorVersion, error) {
	n := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	n = strings.TrimPrefix(n, "windows")
	n = strings.TrimPrefix(n, "win")
	switch n {
	case "10":
		return Windows10, nil
	case "11":
		return Windows11, nil
	}
	return 0, xerrors.Errorf("unsupported Windows version: %q", s)
}

// Tier is the support tier a lifecycle document describes.
type Tier string

const (
	TierConsumer   Tier = "consumer"
	TierEnterprise Tier = "enterprise"
)

func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierConsumer, TierEnterprise:
		return t, nil
	}
	return "", xerrors.Errorf("unknown support tier: %q", s)
}

// LifecycleRecord is one row of a lifecycle "Releases" table.
type LifecycleRecord struct {
	ReleaseName   string    `json:"releaseName"`
	EndOfLifeDate time.Time `json:"endOfLifeDate"`
}

// KBArticle is the support article published with a quality update.
type KBArticle struct {
	ID  string
	URL string
}

// Build is a single quality update of a feature update.
type Build struct {
	BuildNumber       string
	ServicingChannels []string
	ReleaseDate       time.Time
	// nil when the build has no support article, usually the initial release.
	KBArticle *KBArticle
}

// IsPatchTuesdayRelease reports whether the build shipped on the second Tuesday of its month.
func (b Build) IsPatchTuesdayRelease() bool {
	return IsPatchTuesday(b.ReleaseDate)
}

func (b Build) String() string {
	return b.BuildNumber
}

type buildJSON struct {
	BuildNumber           string    `json:"buildNumber"`
	ServicingChannels     []string  `json:"servicingChannels"`
	ReleaseDate           time.Time `json:"releaseDate"`
	IsPatchTuesdayRelease bool      `json:"isPatchTuesdayRelease"`
	KBArticleID           string    `json:"kbArticleId,omitempty"`
	KBArticleURL          string    `json:"kbArticleUrl,omitempty"`
}

func (b Build) MarshalJSON() ([]byte, error) {
	v := buildJSON{
		BuildNumber:           b.BuildNumber,
		ServicingChannels:     b.ServicingChannels,
		ReleaseDate:           b.ReleaseDate,
		IsPatchTuesdayRelease: b.IsPatchTuesdayRelease(),
	}
	if b.KBArticle != nil {
		v.KBArticleID = b.KBArticle.ID
		v.KBArticleURL = b.KBArticle.URL
	}
	return json.Marshal(v)
}

func (b *Build) UnmarshalJSON(data []byte) error {
	var v buildJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if (v.KBArticleID == "") != (v.KBArticleURL == "") {
		return xerrors.Errorf("build %s: kbArticleId and kbArticleUrl must be set together", v.BuildNumber)
	}
	*b = Build{
		BuildNumber:       v.BuildNumber,
		ServicingChannels: v.ServicingChannels,
		ReleaseDate:       v.ReleaseDate,
	}
	if v.KBArticleID != "" {
		b.KBArticle = &KBArticle{ID: v.KBArticleID, URL: v.KBArticleURL}
	}
	return nil
}

// ReleaseBlock is a feature update as it appears in the release history document.
type ReleaseBlock struct {
	ReleaseName    string
	OSBuild        string
	EndOfServicing bool
	Builds         []Build
}

// ReleaseRecord is a feature update joined with its consumer and enterprise lifecycle dates.
type ReleaseRecord struct {
	ReleaseName       string
	ConsumerEoLDate   *time.Time
	EnterpriseEoLDate *time.Time
	Builds            []Build
}

// ConsumerIsEoL reports whether consumer support ended before now.
func (r ReleaseRecord) ConsumerIsEoL(now time.Time) bool {
	return isEoL(r.ConsumerEoLDate, now)
}

// EnterpriseIsEoL reports whether enterprise support ended before now.
func (r ReleaseRecord) EnterpriseIsEoL(now time.Time) bool {
	return isEoL(r.EnterpriseEoLDate, now)
}

func (r ReleaseRecord) String() string {
	return r.ReleaseName
}

// LatestBuild returns the build with the highest build number. Builds whose
// number does not parse are skipped.
func (r ReleaseRecord) LatestBuild() (Build, bool) {
	var (
		latest    Build
		latestVer *version.Version
	)
	for _, b := range r.Builds {
		v, err := version.NewVersion(b.BuildNumber)
		if err != nil {
			continue
		}
		if latestVer == nil || v.GreaterThan(latestVer) {
			latest, latestVer = b, v
		}
	}
	return latest, latestVer != nil
}

func isEoL(eol *time.Time, now time.Time) bool {
	return eol != nil && now.After(*eol)
}

// timeNow is replaced in tests.
var timeNow = time.Now

type releaseRecordJSON struct {
	ReleaseName       string     `json:"releaseName"`
	ConsumerEoLDate   *time.Time `json:"consumerEoLDate,omitempty"`
	ConsumerIsEoL     bool       `json:"consumerIsEoL"`
	EnterpriseEoLDate *time.Time `json:"enterpriseEoLDate,omitempty"`
	EnterpriseIsEoL   bool       `json:"enterpriseIsEoL"`
	ReleaseBuilds     []Build    `json:"releaseBuilds"`
}

func (r ReleaseRecord) MarshalJSON() ([]byte, error) {
	now := timeNow()
	builds := r.Builds
	if builds == nil {
		builds = []Build{}
	}
	return json.Marshal(releaseRecordJSON{
		ReleaseName:       r.ReleaseName,
		ConsumerEoLDate:   r.ConsumerEoLDate,
		ConsumerIsEoL:     r.ConsumerIsEoL(now),
		EnterpriseEoLDate: r.EnterpriseEoLDate,
		EnterpriseIsEoL:   r.EnterpriseIsEoL(now),
		ReleaseBuilds:     builds,
	})
}

func (r *ReleaseRecord) UnmarshalJSON(data []byte) error {
	var v releaseRecordJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = ReleaseRecord{
		ReleaseName:       v.ReleaseName,
		ConsumerEoLDate:   v.ConsumerEoLDate,
		EnterpriseEoLDate: v.EnterpriseEoLDate,
		Builds:            v.ReleaseBuilds,
	}
	return nil
}
