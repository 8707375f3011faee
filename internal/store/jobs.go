package store

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/atelierapp/atelier-server/internal/domain"
)

// Key prefix for image-generation job records.
const imageJobPrefix = "imagejob:"

// Image job errors.
var ErrJobNotFound = errors.New("image job not found")

// CreateImageJob persists a queued image-generation job. The job record is
// written before the in-memory queue hands it to the worker, so queued work
// survives process restarts.
func (s *Store) CreateImageJob(ctx context.Context, job *domain.ImageJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte(imageJobPrefix+job.ID), job)
	})
}

// GetImageJob retrieves a job by ID.
func (s *Store) GetImageJob(ctx context.Context, jobID string) (*domain.ImageJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var job domain.ImageJob
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(imageJobPrefix+jobID), &job)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateImageJobStatus transitions a job to the given status.
func (s *Store) UpdateImageJobStatus(ctx context.Context, jobID, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		var job domain.ImageJob
		if err := getJSON(txn, []byte(imageJobPrefix+jobID), &job); err != nil {
			return err
		}
		job.Status = status
		job.Touch()
		return setJSON(txn, []byte(imageJobPrefix+jobID), &job)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrJobNotFound
	}
	return err
}

// ListQueuedImageJobs returns jobs still in the queued state, oldest first.
// Used on startup to re-enqueue work that was pending at shutdown.
func (s *Store) ListQueuedImageJobs(ctx context.Context) ([]*domain.ImageJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var jobs []*domain.ImageJob
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, []byte(imageJobPrefix), func(j *domain.ImageJob) error {
			if j.Status == domain.JobQueued {
				jobs = append(jobs, j)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs, nil
}
