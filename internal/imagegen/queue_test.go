package imagegen

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierapp/atelier-server/internal/domain"
	"github.com/atelierapp/atelier-server/internal/normalize"
	"github.com/atelierapp/atelier-server/internal/store"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(_ context.Context, job *domain.ImageJob) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "generated/textures/" + job.TextureID + ".png", nil
}

func setupQueue(t *testing.T, renderer Renderer) (*Service, *store.Store) {
	t.Helper()

	st, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := New(st, renderer, telemetry.New(nil), slog.New(slog.DiscardHandler), 16)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Shutdown() })
	return svc, st
}

func createQueueTexture(t *testing.T, st *store.Store, texID string) {
	t.Helper()
	tex := &domain.Texture{
		Record:      domain.Record{ID: texID},
		Name:        domain.LocalizedName{"en": texID},
		CategoryID:  "cat-1",
		Fingerprint: normalize.IdempotencyKey(texID, "en"),
	}
	tex.InitTimestamps()
	require.NoError(t, st.CreateTexture(context.Background(), tex))
}

func waitForJob(t *testing.T, st *store.Store, jobID, status string) *domain.ImageJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := st.GetImageJob(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status == status {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, status)
	return nil
}

func TestEnqueue_CompletesAndFillsImageURL(t *testing.T) {
	svc, st := setupQueue(t, &fakeRenderer{})
	ctx := context.Background()

	createQueueTexture(t, st, "tex-1")

	jobID, err := svc.Enqueue(ctx, "tex-1", "seamless oak parquet texture")
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	waitForJob(t, st, jobID, domain.JobComplete)

	tex, err := st.GetTexture(ctx, "tex-1")
	require.NoError(t, err)
	assert.Equal(t, "generated/textures/tex-1.png", tex.ImageURL)
}

func TestEnqueue_RenderFailureMarksJobFailed(t *testing.T) {
	svc, st := setupQueue(t, &fakeRenderer{err: errors.New("render backend down")})
	ctx := context.Background()

	createQueueTexture(t, st, "tex-1")

	jobID, err := svc.Enqueue(ctx, "tex-1", "anything")
	require.NoError(t, err, "enqueue is fire-and-forget; render failure surfaces on the job only")

	waitForJob(t, st, jobID, domain.JobFailed)

	tex, err := st.GetTexture(ctx, "tex-1")
	require.NoError(t, err)
	assert.Empty(t, tex.ImageURL)
}

func TestEnqueue_AfterShutdownDefersJob(t *testing.T) {
	svc, st := setupQueue(t, &fakeRenderer{})
	ctx := context.Background()

	createQueueTexture(t, st, "tex-1")
	require.NoError(t, svc.Shutdown())

	// A request slipping in mid-shutdown must not panic on the closed
	// channel; the record stays queued for the next startup.
	jobID, err := svc.Enqueue(ctx, "tex-1", "anything")
	require.NoError(t, err)

	job, err := st.GetImageJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, job.Status)
}

func TestStart_ReenqueuesPendingJobs(t *testing.T) {
	dir := t.TempDir()

	st, err := store.New(dir, nil)
	require.NoError(t, err)
	ctx := context.Background()

	tex := &domain.Texture{
		Record:      domain.Record{ID: "tex-1"},
		Name:        domain.LocalizedName{"en": "Oak"},
		Fingerprint: normalize.IdempotencyKey("Oak", "en"),
	}
	tex.InitTimestamps()
	require.NoError(t, st.CreateTexture(ctx, tex))

	// Job written but never processed (simulated crash before the worker ran).
	job := &domain.ImageJob{
		Record:    domain.Record{ID: "job-stale"},
		TextureID: "tex-1",
		Status:    domain.JobQueued,
	}
	job.InitTimestamps()
	require.NoError(t, st.CreateImageJob(ctx, job))

	svc := New(st, &fakeRenderer{}, telemetry.New(nil), slog.New(slog.DiscardHandler), 16)
	require.NoError(t, svc.Start(ctx))

	waitForJob(t, st, "job-stale", domain.JobComplete)

	require.NoError(t, svc.Shutdown())
	require.NoError(t, st.Close())
}
