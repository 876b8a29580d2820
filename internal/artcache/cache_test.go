package artcache

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/genricoloni/nowink/internal/domain"
	"github.com/genricoloni/nowink/internal/domain/mocks"
	"github.com/genricoloni/nowink/internal/mono"
	"github.com/genricoloni/nowink/internal/processor"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const (
	artURL  = "https://i.scdn.co/image/abc"
	artSize = 16
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Black)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newCache(t *testing.T, fetcher domain.Fetcher, dir string, opts Options) *Cache {
	t.Helper()
	opts.Dir = dir
	proc := processor.NewArtProcessor(zap.NewNop(), processor.ArtConfig{Size: artSize})
	c, err := New(zap.NewNop(), fetcher, proc, clockwork.NewFakeClock(), opts)
	require.NoError(t, err)
	return c
}

func TestResolve_MissThenMemoryHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), artURL).Return(pngBytes(t, 32, 32), nil).Times(1)

	dir := t.TempDir()
	c := newCache(t, fetcher, dir, Options{})

	first := c.Resolve(context.Background(), artURL)
	require.True(t, first.Found)
	assert.Equal(t, artURL, first.URL)
	assert.Equal(t, image.Rect(0, 0, artSize, artSize), first.Bitmap.Bounds())

	second := c.Resolve(context.Background(), artURL)
	require.True(t, second.Found)
	assert.Same(t, first.Bitmap, second.Bitmap)

	_, err := os.Stat(filepath.Join(dir, Digest(artURL)+".png"))
	assert.NoError(t, err, "art should be persisted to the disk tier")
}

func TestResolve_DiskHitAcrossRestart(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	warm := mocks.NewMockFetcher(ctrl)
	warm.EXPECT().Fetch(gomock.Any(), artURL).Return(pngBytes(t, 20, 20), nil)
	require.True(t, newCache(t, warm, dir, Options{Policy: PolicyPersist}).Resolve(context.Background(), artURL).Found)

	cold := mocks.NewMockFetcher(ctrl)
	cold.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)
	res := newCache(t, cold, dir, Options{Policy: PolicyPersist}).Resolve(context.Background(), artURL)
	require.True(t, res.Found)
	assert.Equal(t, artSize, res.Bitmap.Bounds().Dx())
}

func TestResolve_SessionPolicyPurgesAtStartup(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	warm := mocks.NewMockFetcher(ctrl)
	warm.EXPECT().Fetch(gomock.Any(), artURL).Return(pngBytes(t, 20, 20), nil)
	newCache(t, warm, dir, Options{}).Resolve(context.Background(), artURL)

	fresh := mocks.NewMockFetcher(ctrl)
	fresh.EXPECT().Fetch(gomock.Any(), artURL).Return(pngBytes(t, 20, 20), nil).Times(1)
	c := newCache(t, fresh, dir, Options{Policy: PolicySession})

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Empty(t, stats)
	assert.True(t, c.Resolve(context.Background(), artURL).Found)
}

func TestResolve_FailuresDegradeToAbsent(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *mocks.MockFetcher)
	}{
		{
			name: "download error",
			setup: func(f *mocks.MockFetcher) {
				f.EXPECT().Fetch(gomock.Any(), artURL).Return(nil, domain.ErrArtFetch)
			},
		},
		{
			name: "undecodable body",
			setup: func(f *mocks.MockFetcher) {
				f.EXPECT().Fetch(gomock.Any(), artURL).Return([]byte("<html>"), nil)
			},
		},
		{
			name: "download exceeds timeout",
			setup: func(f *mocks.MockFetcher) {
				f.EXPECT().Fetch(gomock.Any(), artURL).DoAndReturn(func(ctx context.Context, _ string) ([]byte, error) {
					if _, ok := ctx.Deadline(); !ok {
						return nil, errors.New("fetch context carries no deadline")
					}
					<-ctx.Done()
					return nil, ctx.Err()
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			f := mocks.NewMockFetcher(ctrl)
			tt.setup(f)

			c := newCache(t, f, t.TempDir(), Options{Timeout: 20 * time.Millisecond})
			res := c.Resolve(context.Background(), artURL)
			assert.False(t, res.Found)
			assert.Nil(t, res.Bitmap)
		})
	}
}

func TestResolve_EmptyURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)
	c := newCache(t, f, t.TempDir(), Options{})
	assert.False(t, c.Resolve(context.Background(), "").Found)
}

func TestResolve_CorruptDiskFileIsRefetched(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	path := filepath.Join(dir, Digest(artURL)+".png")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	f := mocks.NewMockFetcher(ctrl)
	f.EXPECT().Fetch(gomock.Any(), artURL).Return(pngBytes(t, 20, 20), nil)

	c := newCache(t, f, dir, Options{})
	require.True(t, c.Resolve(context.Background(), artURL).Found)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err, "corrupt file should have been replaced")
}

func TestResolve_MemoryTierIsBounded(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)
	f.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(pngBytes(t, 20, 20), nil).Times(2)

	c := newCache(t, f, t.TempDir(), Options{MemoryEntries: 1})
	c.Resolve(context.Background(), "https://img/a")
	c.Resolve(context.Background(), "https://img/b")

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.memory, 1)
	_, ok := c.memory["https://img/b"]
	assert.True(t, ok)
}

func countBlack(p *image.Paletted) int {
	n := 0
	b := p.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mono.IsBlack(p, x, y) {
				n++
			}
		}
	}
	return n
}

func TestResolve_RoundedArtSurvivesBothTiers(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	proc := processor.NewArtProcessor(zap.NewNop(), processor.ArtConfig{Size: 96, CornerRadius: 8})

	f := mocks.NewMockFetcher(ctrl)
	f.EXPECT().Fetch(gomock.Any(), artURL).Return(pngBytes(t, 300, 300), nil).Times(1)

	warm, err := New(zap.NewNop(), f, proc, clockwork.NewFakeClock(), Options{Dir: dir, Policy: PolicyPersist})
	require.NoError(t, err)
	res := warm.Resolve(context.Background(), artURL)
	require.True(t, res.Found)
	assert.Greater(t, countBlack(res.Bitmap), 96*96/2, "album art must not come out blank")
	assert.True(t, mono.IsBlack(res.Bitmap, 48, 48))
	assert.False(t, mono.IsBlack(res.Bitmap, 0, 0), "corner is rounded off")

	cold, err := New(zap.NewNop(), mocks.NewMockFetcher(ctrl), proc, clockwork.NewFakeClock(), Options{Dir: dir, Policy: PolicyPersist})
	require.NoError(t, err)
	reloaded := cold.Resolve(context.Background(), artURL)
	require.True(t, reloaded.Found)
	assert.Equal(t, countBlack(res.Bitmap), countBlack(reloaded.Bitmap))
}

func TestDigestIsStable(t *testing.T) {
	assert.Equal(t, Digest(artURL), Digest(artURL))
	assert.NotEqual(t, Digest(artURL), Digest(artURL+"?x"))
	assert.Len(t, Digest(artURL), 64)
}

func TestNew_RejectsUnknownPolicy(t *testing.T) {
	proc := processor.NewArtProcessor(zap.NewNop(), processor.ArtConfig{Size: artSize})
	_, err := New(zap.NewNop(), nil, proc, clockwork.NewFakeClock(), Options{Dir: t.TempDir(), Policy: "forever"})
	assert.Error(t, err)
}
