package api

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/atelierapp/atelier-server/internal/objstore"
	"github.com/atelierapp/atelier-server/internal/recovery"
	"github.com/atelierapp/atelier-server/internal/semantic"
	"github.com/atelierapp/atelier-server/internal/service"
	"github.com/atelierapp/atelier-server/internal/store"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

// testEnvelope mirrors the response envelope for decoding in tests.
type testEnvelope[T any] struct {
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   *Error `json:"error"`
}

// scriptedGenerator returns a fixed JSON payload for every model call.
type scriptedGenerator struct {
	mu      sync.Mutex
	calls   int
	payload string
}

func (g *scriptedGenerator) GenerateStructured(_ context.Context, _ string, _ *genai.Schema, out any) error {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return json.Unmarshal([]byte(g.payload), out)
}

// noopQueue accepts jobs without running them.
type noopQueue struct{}

func (noopQueue) Enqueue(context.Context, string, string) (string, error) {
	return "job-test", nil
}

type testServer struct {
	*Server
	api  humatest.TestAPI
	disk *objstore.Disk
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.SeedCategories(context.Background()))

	disk, err := objstore.NewDisk(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	recorder := telemetry.New(nil)
	gen := &scriptedGenerator{payload: `{"category": "wood"}`}

	matcher := semantic.NewMatcher(st, gen, recorder, logger, semantic.MatcherConfig{RetryBackoff: time.Millisecond})
	inferencer := semantic.NewInferencer(gen, recorder, logger, 1, time.Millisecond)
	engine := recovery.NewEngine(disk, st, logger)

	services := &Services{
		Catalog:  service.NewCatalogService(st, logger),
		Texture:  service.NewTextureService(st, matcher, inferencer, noopQueue{}, logger),
		Recovery: service.NewRecoveryService(engine, logger),
	}

	s := NewServer(st, services, recorder, logger)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
		disk:   disk,
	}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[HealthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.Equal(t, 1, envelope.V)
	assert.True(t, envelope.Success)
	assert.Equal(t, "healthy", envelope.Data.Status)
	assert.Contains(t, envelope.Data.Components, "database")
}

func TestMatchTexture_CreatesEntry(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/textures/match", map[string]any{
		"name":         "Oak Parquet",
		"language_tag": "en-US",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[MatchTextureResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.True(t, envelope.Success)
	assert.True(t, envelope.Data.Created)
	assert.Equal(t, "no_match", envelope.Data.Decision)
	assert.Equal(t, "Oak Parquet", envelope.Data.Texture.Name["en"])
	assert.NotEmpty(t, envelope.Data.JobID)
}

func TestMatchTexture_SecondCallMatches(t *testing.T) {
	ts := newTestServer(t)

	first := ts.api.Post("/api/v1/textures/match", map[string]any{
		"name":         "Oak Parquet",
		"language_tag": "en",
	})
	require.Equal(t, http.StatusOK, first.Code)

	second := ts.api.Post("/api/v1/textures/match", map[string]any{
		"name":         "  oak PARQUET ",
		"language_tag": "en-GB",
	})
	require.Equal(t, http.StatusOK, second.Code)

	var envelope testEnvelope[MatchTextureResponse]
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &envelope))

	assert.False(t, envelope.Data.Created)
	assert.Equal(t, "matched", envelope.Data.Decision)
	assert.InDelta(t, 1.0, envelope.Data.Confidence, 1e-9)
}

func TestMatchTexture_ValidationError(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/textures/match", map[string]any{
		"name":         "",
		"language_tag": "en",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var envelope testEnvelope[struct{}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION", envelope.Error.Code)
}

func TestGetTexture_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/api/v1/textures/tex-missing")
	require.Equal(t, http.StatusNotFound, resp.Code)

	var envelope testEnvelope[struct{}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestCreateStyle_AndGet(t *testing.T) {
	ts := newTestServer(t)

	created := ts.api.Post("/api/v1/styles", map[string]any{
		"name":        "Mid-Century Modern Loft",
		"description": "Warm woods and clean lines",
	})
	require.Equal(t, http.StatusOK, created.Code, created.Body.String())

	var envelope testEnvelope[StyleResponse]
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &envelope))
	assert.Equal(t, "mid-century-modern-loft", envelope.Data.Slug)

	got := ts.api.Get("/api/v1/styles/" + envelope.Data.ID)
	require.Equal(t, http.StatusOK, got.Code)
}

func TestCreateMaterial_UnknownCategory(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/materials", map[string]any{
		"name":          "Brushed Brass",
		"category_slug": "plasma",
	})
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRecoverAssets_RelinksAndIsIdempotent(t *testing.T) {
	ts := newTestServer(t)

	created := ts.api.Post("/api/v1/styles", map[string]any{"name": "Oak Parquet"})
	require.Equal(t, http.StatusOK, created.Code)

	require.NoError(t, ts.disk.Write("1700000000000-abc123-oak-parquet-0.png", []byte("x")))
	require.NoError(t, ts.disk.Write("1700000000000-abc123-oak-parquet-1.png", []byte("x")))

	// A bare request defaults to a dry run and reports without mutating.
	preview := ts.api.Post("/api/v1/admin/recover", map[string]any{})
	require.Equal(t, http.StatusOK, preview.Code, preview.Body.String())

	var envelope testEnvelope[RecoverResponse]
	require.NoError(t, json.Unmarshal(preview.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.DryRun)
	assert.Equal(t, 2, envelope.Data.Relinked)

	first := ts.api.Post("/api/v1/admin/recover", map[string]any{"dry_run": false})
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.DryRun)
	assert.Equal(t, 2, envelope.Data.Relinked)
	assert.Equal(t, 0, envelope.Data.AlreadyLinked)

	second := ts.api.Post("/api/v1/admin/recover", map[string]any{"dry_run": false})
	require.Equal(t, http.StatusOK, second.Code)

	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Data.Relinked)
	assert.Equal(t, 2, envelope.Data.AlreadyLinked)
}

func TestGetTelemetry_RecordsModelCalls(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/textures/match", map[string]any{
		"name":         "Oak Parquet",
		"language_tag": "en",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	tele := ts.api.Get("/api/v1/admin/telemetry")
	require.Equal(t, http.StatusOK, tele.Code)

	var envelope testEnvelope[TelemetryResponse]
	require.NoError(t, json.Unmarshal(tele.Body.Bytes(), &envelope))

	require.NotEmpty(t, envelope.Data.Records)
	kinds := map[string]bool{}
	for _, r := range envelope.Data.Records {
		assert.NotEmpty(t, r.OperationID)
		kinds[r.Kind] = true
	}
	assert.True(t, kinds["infer"], "the category inference call is recorded")
}
