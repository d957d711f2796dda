package utils

import (
	"os"
	"path/filepath"
)

const appName = "windows-build-numbers"

func CacheDir() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	dir := filepath.Join(cacheDir, appName)
	return dir
}

// OutputDir is where release info is written unless WINDOWS_RELEASE_OUTPUT_DIR is set.
func OutputDir() string {
	return LookupEnv("WINDOWS_RELEASE_OUTPUT_DIR", filepath.Join(CacheDir(), "release-info"))
}

func LookupEnv(key, defaultValue string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultValue
}
