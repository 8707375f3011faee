package recovery

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierapp/atelier-server/internal/domain"
	apperrors "github.com/atelierapp/atelier-server/internal/errors"
	"github.com/atelierapp/atelier-server/internal/objstore"
	"github.com/atelierapp/atelier-server/internal/store"
)

func setupEngine(t *testing.T) (*Engine, *store.Store, *objstore.Disk) {
	t.Helper()

	st, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	disk, err := objstore.NewDisk(t.TempDir())
	require.NoError(t, err)

	engine := NewEngine(disk, st, slog.New(slog.DiscardHandler))
	return engine, st, disk
}

func createStyle(t *testing.T, st *store.Store, id, slug string) {
	t.Helper()
	style := &domain.Style{Record: domain.Record{ID: id}, Name: slug, Slug: slug}
	style.InitTimestamps()
	require.NoError(t, st.CreateStyle(context.Background(), style))
}

func TestReconcile_RelinksOrphans(t *testing.T) {
	engine, st, disk := setupEngine(t)
	ctx := context.Background()

	createStyle(t, st, "sty-oak", "oak-parquet")
	require.NoError(t, disk.Write("1700000000000-abc123-oak-parquet-0.png", []byte("x")))
	require.NoError(t, disk.Write("1700000000000-abc123-oak-parquet-1.png", []byte("x")))

	res, err := engine.Reconcile(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 2, res.Relinked)
	assert.Equal(t, 0, res.AlreadyLinked)
	assert.Len(t, res.Details, 2)

	style, err := st.GetStyle(ctx, "sty-oak")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"1700000000000-abc123-oak-parquet-0.png",
		"1700000000000-abc123-oak-parquet-1.png",
	}, style.Images)
}

func TestReconcile_Idempotent(t *testing.T) {
	engine, st, disk := setupEngine(t)
	ctx := context.Background()

	createStyle(t, st, "sty-oak", "oak-parquet")
	require.NoError(t, disk.Write("1700000000000-abc123-oak-parquet-0.png", []byte("x")))

	first, err := engine.Reconcile(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Relinked)

	second, err := engine.Reconcile(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Relinked, "previously relinked objects must report already linked")
	assert.Equal(t, second.Matched, second.AlreadyLinked)
}

func TestReconcile_MissingCatalogEntry(t *testing.T) {
	engine, _, disk := setupEngine(t)
	ctx := context.Background()

	require.NoError(t, disk.Write("1700000000000-abc123-ghost-slug-0.png", []byte("x")))

	res, err := engine.Reconcile(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.MissingCatalogEntry)
	assert.Equal(t, 0, res.Relinked)
	require.Len(t, res.Details, 1)
	assert.Equal(t, OutcomeMissingCatalogEntry, res.Details[0].Outcome)
}

func TestReconcile_UnparsableReported(t *testing.T) {
	engine, _, disk := setupEngine(t)
	ctx := context.Background()

	require.NoError(t, disk.Write("manual-upload.png", []byte("x")))

	res, err := engine.Reconcile(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Unparsable)
	require.Len(t, res.Details, 1)
	assert.Equal(t, OutcomeUnparsable, res.Details[0].Outcome)
	assert.NotEmpty(t, res.Details[0].Reason)
}

func TestReconcile_DryRunNeverMutates(t *testing.T) {
	engine, st, disk := setupEngine(t)
	ctx := context.Background()

	createStyle(t, st, "sty-oak", "oak-parquet")
	require.NoError(t, disk.Write("1700000000000-abc123-oak-parquet-0.png", []byte("x")))

	res, err := engine.Reconcile(ctx, Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Relinked, "dry run reports what would change")

	style, err := st.GetStyle(ctx, "sty-oak")
	require.NoError(t, err)
	assert.Empty(t, style.Images, "dry run must not write")
}

func TestReconcile_ScopedToEntity(t *testing.T) {
	engine, st, disk := setupEngine(t)
	ctx := context.Background()

	createStyle(t, st, "sty-oak", "oak-parquet")
	createStyle(t, st, "sty-scandi", "scandi")
	require.NoError(t, disk.Write("1700000000000-abc123-oak-parquet-0.png", []byte("x")))
	require.NoError(t, disk.Write("1700000000000-abc123-scandi-0.png", []byte("x")))

	res, err := engine.Reconcile(ctx, Options{ScopeEntityID: "sty-oak"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Relinked)
	assert.Equal(t, 1, res.Skipped)

	scandi, err := st.GetStyle(ctx, "sty-scandi")
	require.NoError(t, err)
	assert.Empty(t, scandi.Images, "out-of-scope entities are untouched")
}

// failingCatalog wraps a Catalog, failing appends for one entity.
type failingCatalog struct {
	Catalog
	failEntityID string
}

func (f *failingCatalog) AppendImagePath(ctx context.Context, kind domain.EntityKind, entityID, path string) (bool, error) {
	if entityID == f.failEntityID {
		return false, errors.New("simulated write failure")
	}
	return f.Catalog.AppendImagePath(ctx, kind, entityID, path)
}

func TestReconcile_FailedUpdateDoesNotAbortRun(t *testing.T) {
	engine, st, disk := setupEngine(t)
	ctx := context.Background()

	createStyle(t, st, "sty-oak", "oak-parquet")
	createStyle(t, st, "sty-scandi", "scandi")
	require.NoError(t, disk.Write("1700000000000-abc123-oak-parquet-0.png", []byte("x")))
	require.NoError(t, disk.Write("1700000000000-abc123-scandi-0.png", []byte("x")))

	engine.catalog = &failingCatalog{Catalog: st, failEntityID: "sty-oak"}

	res, err := engine.Reconcile(ctx, Options{})
	require.NoError(t, err, "a per-entity failure must not abort the run")

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Relinked)

	scandi, err := st.GetStyle(ctx, "sty-scandi")
	require.NoError(t, err)
	assert.Len(t, scandi.Images, 1, "other entities relink despite the failure")
}

// cancellingCatalog cancels the run after resolving the first slug.
type cancellingCatalog struct {
	Catalog
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingCatalog) FindEntityBySlug(ctx context.Context, slug string) (domain.CatalogEntity, error) {
	c.calls++
	if c.calls == 1 {
		defer c.cancel()
	}
	return c.Catalog.FindEntityBySlug(ctx, slug)
}

func TestReconcile_CancelReturnsPartialResult(t *testing.T) {
	engine, st, disk := setupEngine(t)

	createStyle(t, st, "sty-oak", "oak-parquet")
	require.NoError(t, disk.Write("1700000000000-abc123-oak-parquet-0.png", []byte("x")))
	require.NoError(t, disk.Write("1700000000000-abc123-oak-parquet-1.png", []byte("x")))
	require.NoError(t, disk.Write("1700000000000-abc123-oak-parquet-2.png", []byte("x")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.catalog = &cancellingCatalog{Catalog: st, cancel: cancel}

	res, err := engine.Reconcile(ctx, Options{Workers: 1})
	require.NoError(t, err, "a cancelled run returns the partial result, not an error")

	assert.Less(t, res.Scanned, 3, "objects after the cancellation checkpoint are not processed")
	assert.GreaterOrEqual(t, res.Scanned, 1)
}

func TestReconcile_StorageUnavailableAborts(t *testing.T) {
	st, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	broken := brokenLister{}
	engine := NewEngine(broken, st, slog.New(slog.DiscardHandler))

	_, err = engine.Reconcile(context.Background(), Options{})
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

type brokenLister struct{}

func (brokenLister) List(context.Context, string) ([]objstore.Object, error) {
	return nil, apperrors.StorageUnavailable(errors.New("connection refused"))
}
