package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

// ErrInvalidTransition is returned when a job status change is not legal
// from the job's current state.
var ErrInvalidTransition = errors.New("invalid job status transition")

// ErrInvalidBudget is returned when a job is created with a non-positive
// budget.
var ErrInvalidBudget = errors.New("job budget must be positive")

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create inserts a new draft job for the client.
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, title, description string, budget decimal.Decimal, deadline *time.Time) (*models.Job, error) {
	if !budget.IsPositive() {
		return nil, ErrInvalidBudget
	}
	j := &models.Job{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       title,
		Description: description,
		Budget:      budget,
		Status:      models.JobStatusDraft,
		Deadline:    deadline,
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// Publish moves draft -> open, making the job visible for proposals.
func (s *Service) Publish(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return s.repo.UpdateStatus(ctx, jobID, models.JobStatusOpen, models.JobStatusDraft)
}

// Complete moves in_progress -> completed.
func (s *Service) Complete(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return s.repo.UpdateStatus(ctx, jobID, models.JobStatusCompleted, models.JobStatusInProgress)
}

// Cancel moves draft|open -> cancelled. An in-progress engagement must be
// settled through escrow instead.
func (s *Service) Cancel(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return s.repo.UpdateStatus(ctx, jobID, models.JobStatusCancelled, models.JobStatusDraft, models.JobStatusOpen)
}

func (s *Service) Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return s.repo.GetByID(ctx, jobID)
}

func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Job, error) {
	return s.repo.ListByClient(ctx, clientID)
}

func (s *Service) ListOpen(ctx context.Context) ([]*models.Job, error) {
	return s.repo.ListOpen(ctx)
}
