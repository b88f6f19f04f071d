package service

import (
	"context"
	"fmt"
	"time"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository"
	"smy-nav-backend/internal/repository/postgres"
)

const batchAttempts = 3

type batchService struct {
	tx           repository.Transactor
	batches      repository.BatchRepository
	participants repository.ParticipantRepository
	catalog      config.TrainingCatalog
	sizes        config.BatchConfig
	now          func() time.Time
}

func NewBatchService(tx repository.Transactor, batches repository.BatchRepository, participants repository.ParticipantRepository,
	catalog config.TrainingCatalog, sizes config.BatchConfig) BatchService {
	if sizes.MinParticipants <= 0 {
		sizes.MinParticipants = domain.DefaultBatchMin
	}
	if sizes.MaxParticipants <= 0 {
		sizes.MaxParticipants = domain.DefaultBatchMax
	}
	return &batchService{
		tx:           tx,
		batches:      batches,
		participants: participants,
		catalog:      catalog,
		sizes:        sizes,
		now:          time.Now,
	}
}

func (s *batchService) List(ctx context.Context, f domain.BatchFilter) ([]domain.TrainingBatch, error) {
	return s.batches.List(ctx, f)
}

func (s *batchService) Get(ctx context.Context, id int32) (*domain.TrainingBatch, error) {
	b, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Participants, err = s.participants.ListByBatch(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

func checkSizes(min, max int) error {
	if min < 1 || max < 1 {
		return domain.NewValidationError("Participant limits must be positive")
	}
	if min > max {
		return &domain.ValidationError{Message: "Minimum participants cannot exceed maximum", Fields: map[string]string{"minParticipants": "invalid"}}
	}
	return nil
}

func (s *batchService) Create(ctx context.Context, in BatchInput) (*domain.TrainingBatch, error) {
	if in.TrainingProgram == "" {
		return nil, &domain.ValidationError{Message: "Training program is required", Fields: map[string]string{"trainingProgram": "required"}}
	}
	if !s.catalog.Has(in.TrainingProgram) {
		return nil, &domain.ValidationError{Message: "Invalid training program", Fields: map[string]string{"trainingProgram": "invalid"}}
	}
	if in.Year == 0 {
		in.Year = s.now().Year()
	}
	if in.MinParticipants == 0 {
		in.MinParticipants = s.sizes.MinParticipants
	}
	if in.MaxParticipants == 0 {
		in.MaxParticipants = s.sizes.MaxParticipants
	}
	if err := checkSizes(in.MinParticipants, in.MaxParticipants); err != nil {
		return nil, err
	}

	var b *domain.TrainingBatch
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.createNext(ctx, in.TrainingProgram, in.Year, in.MinParticipants, in.MaxParticipants)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// createNext inserts the batch with the next free sequence of (program, year),
// retrying when a concurrent insert took the number.
func (s *batchService) createNext(ctx context.Context, program string, year, min, max int) (*domain.TrainingBatch, error) {
	var err error
	for attempt := 0; attempt < batchAttempts; attempt++ {
		var seq int
		if seq, err = s.batches.NextSequence(ctx, program, year); err != nil {
			return nil, err
		}
		b := &domain.TrainingBatch{
			BatchNumber:     domain.BatchNumber(program, year, seq),
			TrainingProgram: program,
			Year:            year,
			Sequence:        seq,
			MinParticipants: min,
			MaxParticipants: max,
			Status:          domain.BatchStatusForming,
		}
		if err = s.batches.Create(ctx, b); err == nil {
			logger.InfoContext(ctx, "Batch created", "batch", b.BatchNumber)
			return b, nil
		}
		if !postgres.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("create batch: %w", err)
		}
	}
	return nil, fmt.Errorf("allocate batch number: %w", err)
}

func (s *batchService) Update(ctx context.Context, id int32, in BatchInput) (*domain.TrainingBatch, error) {
	var b *domain.TrainingBatch
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.batches.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if in.MinParticipants != 0 {
			b.MinParticipants = in.MinParticipants
		}
		if in.MaxParticipants != 0 {
			b.MaxParticipants = in.MaxParticipants
		}
		if err := checkSizes(b.MinParticipants, b.MaxParticipants); err != nil {
			return err
		}
		if b.MaxParticipants < b.ParticipantCount {
			return domain.NewValidationError(fmt.Sprintf("Maximum cannot be lower than the %d assigned participants", b.ParticipantCount))
		}
		if b.Status != domain.BatchStatusSentToCenter {
			b.Status = domain.BatchStatusForming
			if b.ParticipantCount >= b.MinParticipants {
				b.Status = domain.BatchStatusReady
			}
		}
		return s.batches.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *batchService) Delete(ctx context.Context, id int32) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.batches.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != domain.BatchStatusForming {
			return &domain.StateError{Action: "delete-batch", Current: string(b.Status), Message: "Cannot delete batch that is not in forming status"}
		}
		if b.ParticipantCount > 0 {
			return domain.NewValidationError("Cannot delete batch that has participants")
		}
		return s.batches.Delete(ctx, id)
	})
}

// Assign puts p into batchID, or into the oldest batch of its program with
// room left, opening a new batch when every one is full. The caller writes p.
func (s *batchService) Assign(ctx context.Context, p *domain.Participant, batchID *int32) (*domain.TrainingBatch, error) {
	var b *domain.TrainingBatch
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if batchID != nil {
			if b, err = s.batches.GetByIDForUpdate(ctx, *batchID); err != nil {
				return err
			}
			if b.TrainingProgram != p.TrainingProgram {
				return domain.NewValidationError("Batch belongs to a different training program")
			}
			if b.Status == domain.BatchStatusSentToCenter {
				return &domain.StateError{Action: "assign-batch", Current: string(b.Status), Message: "Batch has already been sent to the center"}
			}
			if b.ParticipantCount >= b.MaxParticipants {
				return domain.NewValidationError("Batch is full")
			}
		} else {
			if b, err = s.batches.FindFormingForUpdate(ctx, p.TrainingProgram); err != nil {
				return err
			}
			if b == nil {
				if b, err = s.createNext(ctx, p.TrainingProgram, s.now().Year(), s.sizes.MinParticipants, s.sizes.MaxParticipants); err != nil {
					return err
				}
			}
		}

		p.BatchID = &b.ID
		b.ParticipantCount++
		if b.Status == domain.BatchStatusForming && b.ParticipantCount >= b.MinParticipants {
			b.Status = domain.BatchStatusReady
			return s.batches.Update(ctx, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Participant assigned to batch", "batch", b.BatchNumber, "registration_number", p.RegistrationNumber)
	return b, nil
}

// SendToCenter moves every waiting participant of a ready batch to the center.
func (s *batchService) SendToCenter(ctx context.Context, actor domain.Actor, id int32) (*domain.TrainingBatch, int64, error) {
	var (
		b     *domain.TrainingBatch
		moved int64
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.batches.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if b.Status != domain.BatchStatusReady {
			return &domain.StateError{Action: "send-to-center", Current: string(b.Status), Message: "Batch is not ready to be sent"}
		}
		if b.ParticipantCount < b.MinParticipants {
			return domain.NewValidationError(fmt.Sprintf("Batch needs at least %d participants", b.MinParticipants))
		}
		if moved, err = s.participants.TransitionByBatch(ctx, id, domain.ParticipantStatusWaitingQuota, domain.ParticipantStatusSentToCenter); err != nil {
			return err
		}
		now := s.now()
		b.Status = domain.BatchStatusSentToCenter
		b.SentToCenterAt, b.SentToCenterBy = &now, &actor.UserID
		return s.batches.Update(ctx, b)
	})
	if err != nil {
		return nil, 0, err
	}
	logger.InfoContext(ctx, "Batch sent to center", "batch", b.BatchNumber, "participants", moved)
	return b, moved, nil
}

func (s *batchService) Overview(ctx context.Context) (*domain.BatchOverview, error) {
	return s.batches.Overview(ctx)
}

func (s *batchService) PromoteReady(ctx context.Context) (int64, error) {
	return s.batches.PromoteReady(ctx)
}
