// Package imagegen queues and executes texture image-generation jobs.
//
// Texture creation only enqueues: the contract is satisfied once the job
// record is durably written, decoupling record creation from image
// rendering. A background worker drains the queue and fills in the
// texture's image URL when rendering completes.
package imagegen

import (
	"context"
	"log/slog"
	"sync"

	"github.com/atelierapp/atelier-server/internal/domain"
	"github.com/atelierapp/atelier-server/internal/id"
	"github.com/atelierapp/atelier-server/internal/store"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

// Queue accepts fire-and-forget image generation requests.
type Queue interface {
	Enqueue(ctx context.Context, textureID, descriptor string) (jobID string, err error)
}

// Renderer produces the image for a job and returns its URL. The production
// renderer calls the image model; tests use fakes.
type Renderer interface {
	Render(ctx context.Context, job *domain.ImageJob) (imageURL string, err error)
}

// Service is a durable in-process Queue with one background worker.
type Service struct {
	store    *store.Store
	renderer Renderer
	recorder *telemetry.Recorder
	logger   *slog.Logger

	jobs chan string
	wg   sync.WaitGroup

	// mu guards closed so no send can race the close in Shutdown.
	mu     sync.Mutex
	closed bool
}

// New creates the queue service. Call Start to launch the worker.
func New(st *store.Store, renderer Renderer, recorder *telemetry.Recorder, logger *slog.Logger, buffer int) *Service {
	if buffer <= 0 {
		buffer = 256
	}
	return &Service{
		store:    st,
		renderer: renderer,
		recorder: recorder,
		logger:   logger,
		jobs:     make(chan string, buffer),
	}
}

// Start launches the worker and re-enqueues jobs that were still queued at
// the last shutdown.
func (s *Service) Start(ctx context.Context) error {
	pending, err := s.store.ListQueuedImageJobs(ctx)
	if err != nil {
		return err
	}
	for _, job := range pending {
		// On overflow the job record stays queued and is retried on
		// the next startup.
		s.trySend(job.ID)
	}
	if len(pending) > 0 {
		s.logger.Info("re-enqueued pending image jobs", "count", len(pending))
	}

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// Enqueue implements Queue. The job record is written before the in-memory
// hand-off, so an accepted job survives a crash.
func (s *Service) Enqueue(ctx context.Context, textureID, descriptor string) (string, error) {
	jobID, err := id.Generate("job")
	if err != nil {
		return "", err
	}

	job := &domain.ImageJob{
		Record:     domain.Record{ID: jobID},
		TextureID:  textureID,
		Descriptor: descriptor,
		Status:     domain.JobQueued,
	}
	job.InitTimestamps()

	if err := s.store.CreateImageJob(ctx, job); err != nil {
		return "", err
	}

	if !s.trySend(jobID) {
		s.logger.Warn("image job not handed to worker, deferring to next startup", "job_id", jobID)
	}
	return jobID, nil
}

// trySend hands a job to the worker. Returns false when the queue is full
// or already shut down; the durable job record covers both cases.
func (s *Service) trySend(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.jobs <- jobID:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting work and waits for the in-flight job to finish.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-s.jobs:
			if !ok {
				return
			}
			s.process(ctx, jobID)
		}
	}
}

func (s *Service) process(ctx context.Context, jobID string) {
	job, err := s.store.GetImageJob(ctx, jobID)
	if err != nil {
		s.logger.Error("image job vanished", "job_id", jobID, "error", err)
		return
	}

	done := s.recorder.Observe(telemetry.KindGenerate)
	imageURL, err := s.renderer.Render(ctx, job)
	done(err, "render_failed")
	if err != nil {
		s.logger.Error("image rendering failed", "job_id", jobID, "texture_id", job.TextureID, "error", err)
		if err := s.store.UpdateImageJobStatus(ctx, jobID, domain.JobFailed); err != nil {
			s.logger.Error("failed to mark job failed", "job_id", jobID, "error", err)
		}
		return
	}

	if err := s.store.SetTextureImageURL(ctx, job.TextureID, imageURL); err != nil {
		s.logger.Error("failed to record image URL", "job_id", jobID, "texture_id", job.TextureID, "error", err)
		return
	}
	if err := s.store.UpdateImageJobStatus(ctx, jobID, domain.JobComplete); err != nil {
		s.logger.Error("failed to mark job complete", "job_id", jobID, "error", err)
		return
	}
	s.logger.Info("texture image generated", "job_id", jobID, "texture_id", job.TextureID, "url", imageURL)
}
