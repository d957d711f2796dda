package windows_test

import (
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/windows-build-numbers/utils"
	"github.com/aquasecurity/windows-build-numbers/windows"
)

var update = flag.Bool("update", false, "update golden files")

const (
	historyURL    = "https://docs.example.com/release-information"
	consumerURL   = "https://docs.example.com/windows-10-home-and-pro"
	enterpriseURL = "https://docs.example.com/windows-10-enterprise-and-education"
)

var testSources = map[windows.MajorVersion]windows.Sources{
	windows.Windows10: {
		ReleaseHistory:      historyURL,
		ConsumerLifecycle:   consumerURL,
		EnterpriseLifecycle: enterpriseURL,
	},
}

// fileFetcher serves each URL from a file under testdata.
func fileFetcher(files map[string]string) windows.FetcherFunc {
	return func(_ context.Context, src string) ([]byte, error) {
		name, ok := files[src]
		if !ok {
			return nil, &utils.StatusError{URL: src, StatusCode: http.StatusNotFound}
		}
		return os.ReadFile(filepath.Join("testdata", name))
	}
}

var testFiles = map[string]string{
	historyURL:    "windows10-release-information.html",
	consumerURL:   "windows10-home-and-pro.html",
	enterpriseURL: "windows10-enterprise-and-education.html",
}

type recordSummary struct {
	name          string
	consumerEoL   string
	enterpriseEoL string
	builds        int
}

func summarize(records []windows.ReleaseRecord) []recordSummary {
	var got []recordSummary
	for _, r := range records {
		got = append(got, recordSummary{
			name:          r.ReleaseName,
			consumerEoL:   r.ConsumerEoLDate.Format(time.RFC3339),
			enterpriseEoL: r.EnterpriseEoLDate.Format(time.RFC3339),
			builds:        len(r.Builds),
		})
	}
	return got
}

func TestConfig_GetReleaseInfo(t *testing.T) {
	want := []recordSummary{
		{name: "22H2", consumerEoL: "2025-10-14T00:00:00-07:00", enterpriseEoL: "2025-10-14T00:00:00-07:00", builds: 3},
		{name: "21H2", consumerEoL: "2023-06-13T00:00:00-07:00", enterpriseEoL: "2024-06-11T00:00:00-07:00", builds: 2},
		{name: "1809", consumerEoL: "2020-11-10T00:00:00-08:00", enterpriseEoL: "2021-05-11T00:00:00-07:00", builds: 2},
	}

	tests := []struct {
		name        string
		files       map[string]string
		version     windows.MajorVersion
		want        []recordSummary
		wantErr     string
		wantErrType interface{}
	}{
		{
			name:    "happy path",
			files:   testFiles,
			version: windows.Windows10,
			want:    want,
		},
		{
			name: "enterprise lifecycle missing a release",
			files: map[string]string{
				historyURL:    "windows10-release-information.html",
				consumerURL:   "windows10-home-and-pro.html",
				enterpriseURL: "windows10-home-and-pro-22H2.html",
			},
			version:     windows.Windows10,
			wantErr:     "failed to correlate windows10 releases: no enterprise lifecycle info found for release 21H2",
			wantErrType: &windows.MissingCorrelationError{},
		},
		{
			name: "release history swapped with a lifecycle page",
			files: map[string]string{
				historyURL:    "windows10-home-and-pro.html",
				consumerURL:   "windows10-home-and-pro.html",
				enterpriseURL: "windows10-enterprise-and-education.html",
			},
			version:     windows.Windows10,
			wantErr:     "release history: unable to parse the release history document: no releases found",
			wantErrType: &windows.ParseError{},
		},
		{
			name: "consumer lifecycle not found",
			files: map[string]string{
				historyURL:    "windows10-release-information.html",
				enterpriseURL: "windows10-enterprise-and-education.html",
			},
			version:     windows.Windows10,
			wantErr:     "failed to fetch the consumer lifecycle document from " + consumerURL + ": HTTP error. status code: 404",
			wantErrType: &windows.FetchError{},
		},
		{
			name:    "no sources for the version",
			files:   testFiles,
			version: windows.Windows11,
			wantErr: "no sources configured for windows11",
		},
	}
	for _, schema := range []windows.Schema{windows.SchemaPattern, windows.SchemaMarkup} {
		for _, tt := range tests {
			t.Run(string(schema)+"/"+tt.name, func(t *testing.T) {
				c := windows.NewConfig(
					windows.WithFetcher(fileFetcher(tt.files)),
					windows.WithSources(testSources),
					windows.WithSchema(schema),
				)
				got, err := c.GetReleaseInfo(context.Background(), tt.version)
				if tt.wantErr != "" {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tt.wantErr)
					assert.Nil(t, got)
					if tt.wantErrType != nil {
						switch tt.wantErrType.(type) {
						case *windows.MissingCorrelationError:
							var target *windows.MissingCorrelationError
							assert.True(t, xerrors.As(err, &target))
						case *windows.ParseError:
							var target *windows.ParseError
							assert.True(t, xerrors.As(err, &target))
						case *windows.FetchError:
							var target *windows.FetchError
							assert.True(t, xerrors.As(err, &target))
						}
					}
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.want, summarize(got))
			})
		}
	}
}

func TestConfig_GetReleaseInfo_HTTP(t *testing.T) {
	paths := map[string]string{
		"/release-information":                 "windows10-release-information.html",
		"/windows-10-home-and-pro":             "windows10-home-and-pro.html",
		"/windows-10-enterprise-and-education": "windows10-enterprise-and-education.html",
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := paths[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join("testdata", name))
	}))
	defer ts.Close()

	tests := []struct {
		name    string
		sources windows.Sources
		want    []string
		wantErr string
	}{
		{
			name: "happy path",
			sources: windows.Sources{
				ReleaseHistory:      ts.URL + "/release-information",
				ConsumerLifecycle:   ts.URL + "/windows-10-home-and-pro",
				EnterpriseLifecycle: ts.URL + "/windows-10-enterprise-and-education",
			},
			want: []string{"22H2", "21H2", "1809"},
		},
		{
			name: "local file",
			sources: windows.Sources{
				ReleaseHistory:      "testdata/windows10-release-information.html",
				ConsumerLifecycle:   ts.URL + "/windows-10-home-and-pro",
				EnterpriseLifecycle: ts.URL + "/windows-10-enterprise-and-education",
			},
			want: []string{"22H2", "21H2", "1809"},
		},
		{
			name: "404",
			sources: windows.Sources{
				ReleaseHistory:      ts.URL + "/release-information",
				ConsumerLifecycle:   ts.URL + "/windows-10-home-and-pro",
				EnterpriseLifecycle: ts.URL + "/unknown",
			},
			wantErr: "status code: 404",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := windows.NewConfig(windows.WithSources(map[windows.MajorVersion]windows.Sources{
				windows.Windows10: tt.sources,
			}))
			got, err := c.GetReleaseInfo(context.Background(), windows.Windows10)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				var se *utils.StatusError
				require.True(t, xerrors.As(err, &se))
				assert.Equal(t, http.StatusNotFound, se.StatusCode)
				return
			}
			require.NoError(t, err)

			var names []string
			for _, r := range got {
				names = append(names, r.ReleaseName)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestConfig_GetLifecycle(t *testing.T) {
	tests := []struct {
		name    string
		tier    windows.Tier
		files   map[string]string
		want    [][2]string
		wantErr string
	}{
		{
			name:  "consumer",
			tier:  windows.TierConsumer,
			files: testFiles,
			want: [][2]string{
				{"22H2", "2025-10-14T00:00:00-07:00"},
				{"21H2", "2023-06-13T00:00:00-07:00"},
				{"1809", "2020-11-10T00:00:00-08:00"},
			},
		},
		{
			name:  "enterprise",
			tier:  windows.TierEnterprise,
			files: testFiles,
			want: [][2]string{
				{"22H2", "2025-10-14T00:00:00-07:00"},
				{"21H2", "2024-06-11T00:00:00-07:00"},
				{"1809", "2021-05-11T00:00:00-07:00"},
			},
		},
		{
			name:    "release history served instead",
			tier:    windows.TierEnterprise,
			files:   map[string]string{enterpriseURL: "windows10-release-information.html"},
			wantErr: "enterprise lifecycle: unable to parse the lifecycle document: no Releases table found",
		},
		{
			name:    "not found",
			tier:    windows.TierConsumer,
			files:   map[string]string{},
			wantErr: "failed to fetch the consumer lifecycle document",
		},
		{
			name:    "unknown tier",
			tier:    windows.Tier("education"),
			files:   testFiles,
			wantErr: `unknown support tier: "education"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := windows.NewConfig(
				windows.WithFetcher(fileFetcher(tt.files)),
				windows.WithSources(testSources),
			)
			got, err := c.GetLifecycle(context.Background(), windows.Windows10, tt.tier)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, lifecycleDates(got))
		})
	}
}

func TestConfig_GetReleaseInfo_EndOfServicingWarning(t *testing.T) {
	restore := windows.SetTimeNow(time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC))
	defer restore()

	core, logs := observer.New(zapcore.WarnLevel)
	c := windows.NewConfig(
		windows.WithFetcher(fileFetcher(testFiles)),
		windows.WithSources(testSources),
		windows.WithLogger(zap.New(core).Sugar()),
	)
	_, err := c.GetReleaseInfo(context.Background(), windows.Windows10)
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "1809 is marked as end of servicing but its lifecycle dates are still ahead", entries[0].Message)
}

func TestConfig_Update(t *testing.T) {
	restore := windows.SetTimeNow(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	defer restore()

	tests := []struct {
		name        string
		files       map[string]string
		goldenFiles map[string]string
		wantErr     string
	}{
		{
			name:  "happy path",
			files: testFiles,
			goldenFiles: map[string]string{
				"/tmp/windows/10/releases.json": "testdata/golden/releases.json",
				"/tmp/windows/10/22H2.json":     "testdata/golden/22H2.json",
				"/tmp/windows/10/21H2.json":     "testdata/golden/21H2.json",
				"/tmp/windows/10/1809.json":     "testdata/golden/1809.json",
				"/tmp/last_updated.json":        "testdata/golden/last_updated.json",
			},
		},
		{
			name: "fetch failure leaves the previous files",
			files: map[string]string{
				historyURL:  "windows10-release-information.html",
				consumerURL: "windows10-home-and-pro.html",
			},
			goldenFiles: map[string]string{
				"/tmp/windows/10/20H2.json": "testdata/golden/20H2-stale.json",
			},
			wantErr: "failed to get windows10 release info",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appFs := afero.NewMemMapFs()
			// A release dropped from the page must not survive an update.
			require.NoError(t, afero.WriteFile(appFs, "/tmp/windows/10/20H2.json", []byte(`{"releaseName": "20H2"}`), 0644))

			c := windows.NewConfig(
				windows.WithFetcher(fileFetcher(tt.files)),
				windows.WithSources(testSources),
				windows.WithDir("/tmp"),
				windows.WithAppFs(appFs),
			)
			err := c.Update(context.Background(), windows.Windows10)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			fileCount := 0
			err = afero.Walk(appFs, "/", func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() {
					return nil
				}
				fileCount++

				actual, err := afero.ReadFile(appFs, path)
				assert.NoError(t, err, path)

				goldenPath, ok := tt.goldenFiles[path]
				require.True(t, ok, path)
				if *update {
					err = os.WriteFile(goldenPath, actual, 0666)
					require.NoError(t, err, goldenPath)
				}
				expected, err := os.ReadFile(goldenPath)
				assert.NoError(t, err, goldenPath)

				assert.JSONEq(t, string(expected), string(actual), path)

				return nil
			})
			assert.Equal(t, len(tt.goldenFiles), fileCount)
			assert.NoError(t, err)
		})
	}
}
