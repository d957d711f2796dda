package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/windows-build-numbers/logging"
	"github.com/aquasecurity/windows-build-numbers/utils"
	"github.com/aquasecurity/windows-build-numbers/windows"
)

// CLI is the command line of windows-build-numbers.
type CLI struct {
	Release   string        `arg:"" optional:"" help:"Only show this feature update, e.g. 22H2."`
	Version   string        `short:"w" default:"10" env:"WINDOWS_RELEASE_VERSION" help:"Major Windows version (10 or 11)."`
	Schema    string        `default:"pattern" enum:"pattern,markup" env:"WINDOWS_RELEASE_SCHEMA" help:"How the Microsoft Learn pages are read (${enum})."`
	Sources   string        `type:"path" env:"WINDOWS_RELEASE_SOURCES" help:"YAML file overriding the document URLs."`
	Timeout   time.Duration `default:"60s" env:"WINDOWS_RELEASE_TIMEOUT" help:"Time limit for fetching the documents."`
	Lifecycle bool          `help:"Print the lifecycle table of one support tier instead of the release history."`
	Tier      string        `default:"consumer" enum:"consumer,enterprise" help:"Support tier for --lifecycle (${enum})."`
	Write     bool          `help:"Write JSON files to the output directory instead of printing."`
	OutputDir string        `type:"path" help:"Output directory for --write (default: WINDOWS_RELEASE_OUTPUT_DIR or the user cache dir)."`
	Debug     bool          `env:"WINDOWS_RELEASE_DEBUG" help:"Enable debug logging."`
}

// Main holds the dependencies of the command so tests can replace them.
type Main struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Fetcher windows.Fetcher
	Fs      afero.Fs
	Logger  *zap.Logger
}

func NewMain() *Main {
	return &Main{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Fetcher: windows.FetcherFunc(utils.Fetch),
		Fs:      afero.NewOsFs(),
	}
}

func main() {
	if err := NewMain().Run(context.Background(), os.Args[1:]); err != nil {
		if windows.IsNotFound(err) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func (m *Main) Run(ctx context.Context, args []string) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("windows-build-numbers"),
		kong.Description("Get release information for Windows 10/11 feature updates."),
		kong.Writers(m.Stdout, m.Stderr),
	)
	if err != nil {
		return xerrors.Errorf("failed to create parser: %w", err)
	}
	if _, err = parser.Parse(args); err != nil {
		return err
	}

	version, err := windows.ParseMajorVersion(cli.Version)
	if err != nil {
		return err
	}
	schema, err := windows.ParseSchema(cli.Schema)
	if err != nil {
		return err
	}
	if cli.Write && cli.Release != "" {
		return xerrors.New("a release name cannot be combined with --write")
	}
	if cli.Write && cli.Lifecycle {
		return xerrors.New("--lifecycle cannot be combined with --write")
	}
	tier, err := windows.ParseTier(cli.Tier)
	if err != nil {
		return err
	}

	logger := m.Logger
	if logger == nil {
		if logger, err = logging.New(cli.Debug); err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
	}
	sugar := logger.Sugar()

	sources := windows.DefaultSources()
	if cli.Sources != "" {
		if sources, err = windows.LoadSources(m.Fs, cli.Sources); err != nil {
			return err
		}
	}

	outputDir := cli.OutputDir
	if outputDir == "" {
		outputDir = utils.OutputDir()
	}

	c := windows.NewConfig(
		windows.WithFetcher(m.Fetcher),
		windows.WithSources(sources),
		windows.WithSchema(schema),
		windows.WithLogger(sugar),
		windows.WithAppFs(m.Fs),
		windows.WithDir(outputDir),
	)

	ctx, cancel := context.WithTimeout(ctx, cli.Timeout)
	defer cancel()

	if cli.Write {
		last, err := utils.NewFs(m.Fs).GetLastUpdatedDate(outputDir, windows.Dir)
		if err != nil {
			return err
		}
		sugar.Debugf("Previous update: %s", last.Format(time.RFC3339))
		if err = c.Update(ctx, version); err != nil {
			return xerrors.Errorf("error in %s update: %w", version, err)
		}
		return nil
	}

	if cli.Lifecycle {
		sugar.Debugf("Getting %s lifecycle info for %s", tier, version)
		records, err := c.GetLifecycle(ctx, version, tier)
		if err != nil {
			return xerrors.Errorf("failed to get %s lifecycle info: %w", version, err)
		}
		if cli.Release == "" {
			return m.print(records)
		}
		record, ok := lo.Find(records, func(r windows.LifecycleRecord) bool {
			return r.ReleaseName == cli.Release
		})
		if !ok {
			return &windows.NotFoundError{ReleaseName: cli.Release}
		}
		return m.print(record)
	}

	sugar.Debugf("Getting release info for %s", version)
	records, err := c.GetReleaseInfo(ctx, version)
	if err != nil {
		return xerrors.Errorf("failed to get %s release info: %w", version, err)
	}
	if cli.Release == "" {
		return m.print(records)
	}
	record, err := windows.FindRelease(cli.Release, records)
	if err != nil {
		return err
	}
	return m.print(record)
}

func (m *Main) print(v interface{}) error {
	enc := json.NewEncoder(m.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return xerrors.Errorf("failed to encode release info: %w", err)
	}
	return nil
}
