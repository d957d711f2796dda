package utils

import (
	"context"
	"os"
	"path/filepath"

	getter "github.com/hashicorp/go-getter"
	"golang.org/x/xerrors"
)

// DownloadToTempFile stores src in a new temp dir and returns the file path.
// The caller removes the parent directory.
func DownloadToTempFile(ctx context.Context, src string) (string, error) {
	tmpDir, err := os.MkdirTemp("", appName)
	if err != nil {
		return "", xerrors.Errorf("failed to create a temp dir: %w", err)
	}

	// go-getter symlinks local files into place, which fails if the destination exists.
	dst := filepath.Join(tmpDir, "document")
	if err = download(ctx, src, dst, getter.ClientModeFile); err != nil {
		os.RemoveAll(tmpDir)
		return "", xerrors.Errorf("download error: %w", err)
	}

	return dst, nil
}

func download(ctx context.Context, src, dst string, mode getter.ClientMode) error {
	pwd, err := os.Getwd()
	if err != nil {
		return xerrors.Errorf("unable to get the current dir: %w", err)
	}

	// Build the client
	client := &getter.Client{
		Ctx:     ctx,
		Src:     src,
		Dst:     dst,
		Pwd:     pwd,
		Getters: getter.Getters,
		Mode:    mode,
	}

	if err = client.Get(); err != nil {
		return xerrors.Errorf("failed to download: %w", err)
	}

	return nil
}
