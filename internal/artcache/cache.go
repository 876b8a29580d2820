// Package artcache resolves album-art URLs to processed 1-bit bitmaps through
// a memory tier keyed by URL and a disk tier keyed by the URL digest.
package artcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/nowink/internal/domain"
	"github.com/genricoloni/nowink/internal/mono"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	// PolicyPersist keeps the disk tier across restarts
	PolicyPersist = "persist"
	// PolicySession empties the disk tier at startup
	PolicySession = "session"

	defaultTimeout       = 15 * time.Second
	defaultMemoryEntries = 64
	fileExt              = ".png"
)

// Processor converts downloaded bytes into a square bitmap
type Processor interface {
	Process(ctx context.Context, data []byte) (*image.Paletted, error)
	Size() int
}

// Options configures a Cache
type Options struct {
	Dir           string
	Policy        string
	MemoryEntries int
	Timeout       time.Duration
}

// DiskEntry describes one file of the disk tier
type DiskEntry struct {
	Digest    string
	Bytes     int64
	CreatedAt time.Time
}

// Cache implements domain.ArtResolver
type Cache struct {
	logger    *zap.Logger
	fetcher   domain.Fetcher
	processor Processor
	clock     clockwork.Clock
	dir       string
	timeout   time.Duration
	maxMemory int

	mu     sync.Mutex
	memory map[string]domain.CacheEntry
}

// New creates the cache directory and applies the startup policy
func New(logger *zap.Logger, fetcher domain.Fetcher, proc Processor, clock clockwork.Clock, opts Options) (*Cache, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MemoryEntries <= 0 {
		opts.MemoryEntries = defaultMemoryEntries
	}
	if opts.Dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		logger:    logger,
		fetcher:   fetcher,
		processor: proc,
		clock:     clock,
		dir:       opts.Dir,
		timeout:   opts.Timeout,
		maxMemory: opts.MemoryEntries,
		memory:    make(map[string]domain.CacheEntry),
	}

	switch opts.Policy {
	case PolicySession:
		n, err := c.Purge()
		if err != nil {
			return nil, err
		}
		logger.Info("Art cache purged for new session", zap.Int("files", n))
	case PolicyPersist, "":
	default:
		return nil, fmt.Errorf("unknown cache policy %q", opts.Policy)
	}

	return c, nil
}

// Digest is the disk-tier key of a URL
func Digest(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Resolve returns the bitmap for url. It never fails: every error is logged
// and reported as an absent resolution.
func (c *Cache) Resolve(ctx context.Context, url string) domain.ArtResolution {
	if url == "" {
		return domain.ArtAbsent(url)
	}

	if entry, ok := c.lookupMemory(url); ok {
		c.logger.Debug("Art cache memory hit", zap.String("url", url))
		return found(url, entry)
	}

	digest := Digest(url)
	if bitmap, err := c.loadDisk(digest); err == nil {
		c.logger.Debug("Art cache disk hit", zap.String("digest", digest))
		entry := domain.CacheEntry{URLHash: digest, Bitmap: bitmap, CreatedAt: c.clock.Now()}
		c.storeMemory(url, entry)
		return found(url, entry)
	} else if !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("Discarding unreadable cache file", zap.String("digest", digest), zap.Error(err))
		_ = os.Remove(c.path(digest))
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.fetcher.Fetch(fetchCtx, url)
	if err != nil {
		c.logger.Warn("Album art download failed", zap.String("url", url), zap.Error(err))
		return domain.ArtAbsent(url)
	}

	bitmap, err := c.processor.Process(fetchCtx, data)
	if err != nil {
		c.logger.Warn("Album art processing failed", zap.String("url", url), zap.Error(err))
		return domain.ArtAbsent(url)
	}

	entry := domain.CacheEntry{URLHash: digest, Bitmap: bitmap, CreatedAt: c.clock.Now()}
	c.storeMemory(url, entry)
	if err := c.storeDisk(digest, bitmap); err != nil {
		c.logger.Warn("Failed to persist album art", zap.String("digest", digest), zap.Error(err))
	}

	c.logger.Info("Album art cached", zap.String("url", url), zap.String("digest", digest))
	return found(url, entry)
}

// Purge empties both tiers and returns the number of files removed
func (c *Cache) Purge() (int, error) {
	c.mu.Lock()
	c.memory = make(map[string]domain.CacheEntry)
	c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// Stats lists the disk tier
func (c *Cache) Stats() ([]DiskEntry, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var out []DiskEntry
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, DiskEntry{
			Digest:    strings.TrimSuffix(e.Name(), fileExt),
			Bytes:     info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	return out, nil
}

// Dir returns the disk tier location
func (c *Cache) Dir() string {
	return c.dir
}

func found(url string, entry domain.CacheEntry) domain.ArtResolution {
	return domain.ArtResolution{URL: url, Bitmap: entry.Bitmap, Found: true}
}

func (c *Cache) path(digest string) string {
	return filepath.Join(c.dir, digest+fileExt)
}

func (c *Cache) lookupMemory(url string) (domain.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.memory[url]
	return entry, ok
}

func (c *Cache) storeMemory(url string, entry domain.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.memory[url]; !ok && len(c.memory) >= c.maxMemory {
		var oldestURL string
		var oldest time.Time
		for u, e := range c.memory {
			if oldestURL == "" || e.CreatedAt.Before(oldest) {
				oldestURL, oldest = u, e.CreatedAt
			}
		}
		delete(c.memory, oldestURL)
	}
	c.memory[url] = entry
}

func (c *Cache) loadDisk(digest string) (*image.Paletted, error) {
	f, err := os.Open(c.path(digest))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cached art: %w", err)
	}

	size := c.processor.Size()
	if b := img.Bounds(); b.Dx() != size || b.Dy() != size {
		return nil, fmt.Errorf("cached art is %dx%d, want %dx%d", b.Dx(), b.Dy(), size, size)
	}
	return mono.Convert(img, mono.Threshold), nil
}

// storeDisk writes through a temp file so readers never see a partial PNG
func (c *Cache) storeDisk(digest string, bitmap *image.Paletted) error {
	tmp, err := os.CreateTemp(c.dir, digest+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := png.Encode(tmp, bitmap); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode art: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, c.path(digest)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move art into place: %w", err)
	}
	return nil
}
