package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/config"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/fal"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/grok"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/luma"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/replicate"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/sora"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                 8080,
		ProjectsDir:          filepath.Join(t.TempDir(), "projects"),
		DefaultProject:       "quick-test",
		FFmpegPath:           "ffmpeg",
		ProviderPollInterval: time.Second,
		ProviderPollTimeout:  time.Minute,
		ProviderMaxRetries:   1,
		ProviderBaseBackoff:  time.Millisecond,
		DownloadTimeout:      time.Minute,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAdapterFactory(t *testing.T) {
	factory := NewAdapterFactory(testConfig(t))

	byID := make(map[string]generator.Descriptor)
	for _, d := range generator.DefaultCatalog() {
		byID[d.ID] = d
	}

	tests := []struct {
		id    string
		check func(t *testing.T, a generator.Adapter)
	}{
		{"grok", func(t *testing.T, a generator.Adapter) { assert.IsType(t, &grok.Adapter{}, a) }},
		{"rep-kling", func(t *testing.T, a generator.Adapter) { assert.IsType(t, &replicate.Adapter{}, a) }},
		{"fal-ovi", func(t *testing.T, a generator.Adapter) { assert.IsType(t, &fal.Adapter{}, a) }},
		{"luma", func(t *testing.T, a generator.Adapter) { assert.IsType(t, &luma.Adapter{}, a) }},
		{"sora", func(t *testing.T, a generator.Adapter) { assert.IsType(t, &sora.Adapter{}, a) }},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			a, err := factory(byID[tt.id], "secret")
			require.NoError(t, err)
			tt.check(t, a)
		})
	}

	_, err := factory(generator.Descriptor{ID: "runway", CredentialKey: "runway"}, "secret")
	assert.ErrorContains(t, err, "no adapter")
}

func TestNewDependencies(t *testing.T) {
	cfg := testConfig(t)
	cfg.FALKey = "fal-key"
	cfg.OpenAIAPIKey = "sk-test"

	deps, err := NewDependencies(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	ids := make([]string, 0)
	for _, d := range deps.Registry.List() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"fal-wan", "fal-kling", "fal-ovi", "sora"}, ids)

	_, _, err = deps.Registry.Get("grok")
	assert.ErrorIs(t, err, generator.ErrUnknownProvider)

	assert.DirExists(t, filepath.Join(cfg.ProjectsDir, "quick-test", "videos"))
	assert.NotNil(t, deps.Service)
	assert.NotNil(t, deps.Resolver)
}

func TestNewDependencies_CatalogFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.LumaAPIKey = "luma-key"
	cfg.ProviderCatalogFile = filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(cfg.ProviderCatalogFile, []byte(`
providers:
  - id: luma-flash
    name: Luma Ray Flash
    credential: luma
    model: ray-flash-2
    capabilities:
      aspect_ratios: ["9:16", "16:9"]
      max_duration_sec: 10
`), 0o600))

	deps, err := NewDependencies(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	require.Equal(t, 1, deps.Registry.Len())
	_, d, err := deps.Registry.Get("luma-flash")
	require.NoError(t, err)
	assert.Equal(t, "ray-flash-2", d.Model)

	cfg.ProviderCatalogFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewDependencies(context.Background(), cfg, quietLogger())
	assert.Error(t, err)
}

func TestInitMirror(t *testing.T) {
	cfg := testConfig(t)

	m, err := initMirror(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, m)

	cfg.MinIOEndpoint = "localhost:9000"
	cfg.MinIOBucket = "clips"
	m, err = initMirror(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.NotNil(t, m)
}
