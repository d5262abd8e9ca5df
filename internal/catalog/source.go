package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/star/airmass/catalogs"
	"github.com/star/airmass/internal/sky"
)

// SampleSource names the embedded sample catalog in logs and Catalog.Source.
const SampleSource = "embedded:" + catalogs.SampleName

// Load reads a catalog from source: an http(s) URL, a file path, or ""
// for the embedded sample.
func Load(ctx context.Context, source string, logger *slog.Logger) ([]sky.Target, error) {
	switch {
	case source == "" || source == SampleSource:
		return Sample(logger)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		data, err := NewFetcher(source, logger).Fetch(ctx)
		if err != nil {
			return nil, err
		}
		return Parse(bytes.NewReader(data), logger)
	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening catalog: %w", err)
		}
		defer f.Close()
		return Parse(f, logger)
	}
}

// Sample returns the embedded sample catalog.
func Sample(logger *slog.Logger) ([]sky.Target, error) {
	data, err := catalogs.Content.ReadFile(catalogs.SampleName)
	if err != nil {
		return nil, fmt.Errorf("reading embedded catalog: %w", err)
	}
	return Parse(bytes.NewReader(data), logger)
}

// LoadRemote fetches a catalog from an http(s) URL. A successful download is
// written to cache; when the download fails the newest cached copy is used
// instead. cache may be nil.
func LoadRemote(ctx context.Context, sourceURL string, cache *Cache, logger *slog.Logger) (*Catalog, error) {
	data, fetchErr := NewFetcher(sourceURL, logger).Fetch(ctx)
	loadedAt := time.Now()
	source := sourceURL

	switch {
	case fetchErr == nil && cache != nil:
		if err := cache.Write(data, loadedAt); err != nil {
			logger.Warn("failed to cache catalog", "component", "catalog", "error", err)
		}
	case fetchErr != nil && cache != nil:
		cached, ts, err := cache.LoadLatest()
		if err != nil {
			return nil, fmt.Errorf("%w (no cached copy: %v)", fetchErr, err)
		}
		logger.Warn("catalog fetch failed, using cached copy",
			"component", "catalog",
			"error", fetchErr,
			"cached_at", ts.Format(time.RFC3339),
		)
		data, loadedAt, source = cached, ts, "cache:"+sourceURL
	case fetchErr != nil:
		return nil, fetchErr
	}

	targets, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, err
	}
	return &Catalog{Source: source, LoadedAt: loadedAt, Targets: targets}, nil
}

// maxCachedCatalogs bounds the downloads kept in a cache directory.
const maxCachedCatalogs = 5

// Open loads source into a Catalog. Remote sources go through a download
// cache in cacheDir when cacheDir is set.
func Open(ctx context.Context, source, cacheDir string, logger *slog.Logger) (*Catalog, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		var cache *Cache
		if cacheDir != "" {
			cache = NewCache(cacheDir, maxCachedCatalogs)
		}
		return LoadRemote(ctx, source, cache, logger)
	}

	targets, err := Load(ctx, source, logger)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = SampleSource
	}
	return &Catalog{Source: source, LoadedAt: time.Now(), Targets: targets}, nil
}
