package windows

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/windows-build-numbers/utils"
)

const (
	// Dir is the directory under the output directory that Update writes to,
	// and its key in last_updated.json.
	Dir          = "windows"
	releasesFile = "releases.json"

	consumerLifecycleDocument   = "consumer lifecycle"
	enterpriseLifecycleDocument = "enterprise lifecycle"
)

// Fetcher returns the raw content of a source document.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, src string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, src string) ([]byte, error) {
	return f(ctx, src)
}

type Config struct {
	fetcher Fetcher
	sources map[MajorVersion]Sources
	schema  Schema
	logger  *zap.SugaredLogger
	dir     string
	appFs   afero.Fs
}

type option func(*Config)

func WithFetcher(f Fetcher) option {
	return func(c *Config) {
		c.fetcher = f
	}
}

func WithSources(sources map[MajorVersion]Sources) option {
	return func(c *Config) {
		c.sources = sources
	}
}

func WithSchema(schema Schema) option {
	return func(c *Config) {
		c.schema = schema
	}
}

func WithLogger(logger *zap.SugaredLogger) option {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDir sets the directory Update writes to.
func WithDir(dir string) option {
	return func(c *Config) {
		c.dir = dir
	}
}

func WithAppFs(fs afero.Fs) option {
	return func(c *Config) {
		c.appFs = fs
	}
}

func NewConfig(opts ...option) Config {
	c := Config{
		fetcher: FetcherFunc(utils.Fetch),
		sources: DefaultSources(),
		schema:  SchemaPattern,
		logger:  zap.NewNop().Sugar(),
		dir:     utils.OutputDir(),
		appFs:   afero.NewOsFs(),
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// GetReleaseInfo fetches the release history and both lifecycle documents of
// a major version and returns its feature updates in release history order.
// Any fetch, parse or correlation failure fails the whole call.
func (c Config) GetReleaseInfo(ctx context.Context, version MajorVersion) ([]ReleaseRecord, error) {
	src, ok := c.sources[version]
	if !ok {
		return nil, xerrors.Errorf("no sources configured for %s", version)
	}

	var history, consumer, enterprise []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		history, err = c.fetch(gctx, releaseHistoryDocument, src.ReleaseHistory)
		return err
	})
	g.Go(func() (err error) {
		consumer, err = c.fetch(gctx, consumerLifecycleDocument, src.ConsumerLifecycle)
		return err
	})
	g.Go(func() (err error) {
		enterprise, err = c.fetch(gctx, enterpriseLifecycleDocument, src.EnterpriseLifecycle)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	consumerRecords, err := c.schema.ParseLifecycle(string(consumer))
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", consumerLifecycleDocument, err)
	}
	enterpriseRecords, err := c.schema.ParseLifecycle(string(enterprise))
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", enterpriseLifecycleDocument, err)
	}
	blocks, err := c.schema.ParseReleaseHistory(string(history))
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", releaseHistoryDocument, err)
	}
	c.logger.Debugf("Parsed %d feature updates, %d consumer and %d enterprise lifecycle records",
		len(blocks), len(consumerRecords), len(enterpriseRecords))

	records, err := Correlate(blocks, consumerRecords, enterpriseRecords)
	if err != nil {
		return nil, xerrors.Errorf("failed to correlate %s releases: %w", version, err)
	}

	now := timeNow()
	for i, block := range blocks {
		if block.EndOfServicing && !records[i].ConsumerIsEoL(now) && !records[i].EnterpriseIsEoL(now) {
			c.logger.Warnf("%s is marked as end of servicing but its lifecycle dates are still ahead", block.ReleaseName)
		}
	}

	c.logger.Infof("Found %d %s feature updates", len(records), version)
	return records, nil
}

// GetLifecycle returns the lifecycle records of one support tier of a major version.
func (c Config) GetLifecycle(ctx context.Context, version MajorVersion, tier Tier) ([]LifecycleRecord, error) {
	src, ok := c.sources[version]
	if !ok {
		return nil, xerrors.Errorf("no sources configured for %s", version)
	}

	var document, url string
	switch tier {
	case TierConsumer:
		document, url = consumerLifecycleDocument, src.ConsumerLifecycle
	case TierEnterprise:
		document, url = enterpriseLifecycleDocument, src.EnterpriseLifecycle
	default:
		return nil, xerrors.Errorf("unknown support tier: %q", string(tier))
	}

	b, err := c.fetch(ctx, document, url)
	if err != nil {
		return nil, err
	}
	records, err := c.schema.ParseLifecycle(string(b))
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", document, err)
	}
	c.logger.Infof("Found %d %s %s lifecycle records", len(records), version, tier)
	return records, nil
}

func (c Config) fetch(ctx context.Context, document, src string) ([]byte, error) {
	c.logger.Infof("Fetching the %s document from %s", document, src)
	b, err := c.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, &FetchError{Document: document, URL: src, Err: err}
	}
	return b, nil
}

// Update writes windows/<major>/releases.json and one file per feature
// update under the output directory, then records the update time.
func (c Config) Update(ctx context.Context, versions ...MajorVersion) error {
	fs := utils.NewFs(c.appFs)
	for _, version := range versions {
		records, err := c.GetReleaseInfo(ctx, version)
		if err != nil {
			return xerrors.Errorf("failed to get %s release info: %w", version, err)
		}

		dir := filepath.Join(c.dir, Dir, strconv.Itoa(int(version)))
		c.logger.Infof("Remove %s directory %s", version, dir)
		if err = c.appFs.RemoveAll(dir); err != nil {
			return xerrors.Errorf("failed to remove %s directory: %w", version, err)
		}

		if err = fs.WriteJSON(filepath.Join(dir, releasesFile), records); err != nil {
			return xerrors.Errorf("failed to write %s releases: %w", version, err)
		}

		bar := pb.StartNew(len(records))
		for _, record := range records {
			if latest, ok := record.LatestBuild(); ok {
				c.logger.Debugf("%s: latest build %s released %s", record.ReleaseName, latest, latest.ReleaseDate.Format("2006-01-02"))
			}
			if err = fs.WriteJSON(filepath.Join(dir, record.ReleaseName+".json"), record); err != nil {
				return xerrors.Errorf("failed to write %s: %w", record.ReleaseName, err)
			}
			bar.Increment()
		}
		bar.Finish()
	}

	if err := fs.SetLastUpdatedDate(c.dir, Dir, timeNow().UTC()); err != nil {
		return xerrors.Errorf("failed to set the last updated date: %w", err)
	}
	return nil
}
