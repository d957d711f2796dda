package windows

import (
	"github.com/spf13/afero"
	"golang.org/x/exp/maps"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Sources are the three documents a major version is assembled from.
// Each entry is an http(s) URL or anything go-getter understands, such as a local file.
type Sources struct {
	ReleaseHistory      string `yaml:"releaseHistory"`
	ConsumerLifecycle   string `yaml:"consumerLifecycle"`
	EnterpriseLifecycle string `yaml:"enterpriseLifecycle"`
}

var defaultSources = map[MajorVersion]Sources{
	Windows10: {
		ReleaseHistory:      "https://learn.microsoft.com/en-us/windows/release-health/release-information",
		ConsumerLifecycle:   "https://learn.microsoft.com/en-us/lifecycle/products/windows-10-home-and-pro",
		EnterpriseLifecycle: "https://learn.microsoft.com/en-us/lifecycle/products/windows-10-enterprise-and-education",
	},
	Windows11: {
		ReleaseHistory:      "https://learn.microsoft.com/en-us/windows/release-health/windows11-release-information",
		ConsumerLifecycle:   "https://learn.microsoft.com/en-us/lifecycle/products/windows-11-home-and-pro",
		EnterpriseLifecycle: "https://learn.microsoft.com/en-us/lifecycle/products/windows-11-enterprise-and-education",
	},
}

// DefaultSources returns a copy of the Microsoft Learn URLs for every supported version.
func DefaultSources() map[MajorVersion]Sources {
	return maps.Clone(defaultSources)
}

// LoadSources reads a YAML file keyed by major version ("windows10", "11", ...)
// and lays it over the defaults. Empty fields keep the default URL.
//
//	windows11:
//	  releaseHistory: ./snapshots/windows11-release-information.html
func LoadSources(fs afero.Fs, path string) (map[MajorVersion]Sources, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, xerrors.Errorf("unable to read the sources file: %w", err)
	}

	var raw map[string]Sources
	if err = yaml.UnmarshalStrict(b, &raw); err != nil {
		return nil, xerrors.Errorf("failed to decode the sources file %s: %w", path, err)
	}

	sources := DefaultSources()
	for key, override := range raw {
		v, err := ParseMajorVersion(key)
		if err != nil {
			return nil, xerrors.Errorf("invalid key in %s: %w", path, err)
		}
		s := sources[v]
		if override.ReleaseHistory != "" {
			s.ReleaseHistory = override.ReleaseHistory
		}
		if override.ConsumerLifecycle != "" {
			s.ConsumerLifecycle = override.ConsumerLifecycle
		}
		if override.EnterpriseLifecycle != "" {
			s.EnterpriseLifecycle = override.EnterpriseLifecycle
		}
		sources[v] = s
	}
	return sources, nil
}
