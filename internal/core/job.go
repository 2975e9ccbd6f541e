package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

// JobStore records publish jobs and writes terminal outcomes back to the
// content they were published from.
type JobStore struct {
	db DB
}

func NewJobStore(db DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job *model.PublishJob) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO publish_jobs (publish_id, account_id, user_id, content_id, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (publish_id) DO NOTHING`,
		job.PublishID, job.AccountID, job.UserID, job.ContentID, job.Status)
	if err != nil {
		return fmt.Errorf("insert publish job %s: %w", job.PublishID, err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, publishID string) (*model.PublishJob, error) {
	var j model.PublishJob
	err := s.db.QueryRow(ctx,
		`SELECT publish_id, account_id, user_id, content_id, status, fail_reason, attempts, created_at, updated_at
		 FROM publish_jobs WHERE publish_id = $1`, publishID,
	).Scan(&j.PublishID, &j.AccountID, &j.UserID, &j.ContentID, &j.Status, &j.FailReason, &j.Attempts,
		&j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get publish job %s: %w", publishID, err)
	}
	return &j, nil
}

// RecordAttempt counts a non-terminal poll.
func (s *JobStore) RecordAttempt(ctx context.Context, publishID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE publish_jobs SET status = $2, attempts = attempts + 1, updated_at = now()
		 WHERE publish_id = $1 AND status IN ($3, $2)`,
		publishID, model.PublishStatusProcessing, model.PublishStatusSent)
	if err != nil {
		return fmt.Errorf("record attempt for publish job %s: %w", publishID, err)
	}
	return nil
}

// Complete stores a terminal status. Only the first terminal write wins; the
// return value reports whether this call made it.
func (s *JobStore) Complete(ctx context.Context, publishID, status, failReason string) (bool, error) {
	var reason *string
	if failReason != "" {
		reason = &failReason
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE publish_jobs SET status = $2, fail_reason = $3, updated_at = now()
		 WHERE publish_id = $1 AND status IN ($4, $5)`,
		publishID, status, reason, model.PublishStatusSent, model.PublishStatusProcessing)
	if err != nil {
		return false, fmt.Errorf("complete publish job %s: %w", publishID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkContentPublished sets the published flag and URL on the user's content.
func (s *JobStore) MarkContentPublished(ctx context.Context, contentID, userID, publishedURL string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE output_contents SET published = TRUE, published_url = $3, updated_at = now()
		 WHERE id = $1 AND user_id = $2`,
		contentID, userID, publishedURL)
	if err != nil {
		return fmt.Errorf("mark content %s published: %w", contentID, err)
	}
	return nil
}
