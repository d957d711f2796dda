package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

const (
	lastUpdatedFile = "last_updated.json"
)

type LastUpdated map[string]time.Time

// GetLastUpdatedDate returns the Unix epoch when target was never updated in dir.
func (fs Fs) GetLastUpdatedDate(dir, target string) (time.Time, error) {
	lastUpdated, err := fs.getLastUpdatedDate(dir)
	if err != nil {
		return time.Time{}, err
	}

	t, ok := lastUpdated[target]
	if !ok {
		return time.Unix(0, 0), nil
	}

	return t, nil
}

func (fs Fs) getLastUpdatedDate(dir string) (LastUpdated, error) {
	lastUpdated := LastUpdated{}
	b, err := afero.ReadFile(fs.AppFs, filepath.Join(dir, lastUpdatedFile))
	if os.IsNotExist(err) {
		return lastUpdated, nil
	} else if err != nil {
		return nil, xerrors.Errorf("unable to read %s: %w", lastUpdatedFile, err)
	}

	if err = json.Unmarshal(b, &lastUpdated); err != nil {
		return nil, xerrors.Errorf("failed to decode %s: %w", lastUpdatedFile, err)
	}

	return lastUpdated, nil
}

func (fs Fs) SetLastUpdatedDate(dir, target string, lastUpdatedDate time.Time) error {
	lastUpdated, err := fs.getLastUpdatedDate(dir)
	if err != nil {
		return xerrors.Errorf("failed to get last updated date: %w", err)
	}
	lastUpdated[target] = lastUpdatedDate

	if err = fs.WriteJSON(filepath.Join(dir, lastUpdatedFile), lastUpdated); err != nil {
		return xerrors.Errorf("failed to write last updated date: %w", err)
	}

	return nil
}
