package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository"
)

type scheduleService struct {
	tx           repository.Transactor
	schedules    repository.ScheduleRepository
	participants repository.ParticipantRepository
	catalog      config.TrainingCatalog
	now          func() time.Time
}

func NewScheduleService(tx repository.Transactor, schedules repository.ScheduleRepository, participants repository.ParticipantRepository,
	catalog config.TrainingCatalog) ScheduleService {
	return &scheduleService{
		tx:           tx,
		schedules:    schedules,
		participants: participants,
		catalog:      catalog,
		now:          time.Now,
	}
}

func (s *scheduleService) List(ctx context.Context, f domain.ScheduleFilter) ([]domain.TrainingSchedule, int, error) {
	return s.schedules.List(ctx, f)
}

func (s *scheduleService) Get(ctx context.Context, id int32) (*domain.TrainingSchedule, error) {
	return s.schedules.GetByID(ctx, id)
}

func (s *scheduleService) check(ctx context.Context, in *ScheduleInput, excludeID int32) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.TrainingProgram == "" || in.StartDate.IsZero() || in.EndDate.IsZero() {
		return domain.NewValidationError("Training program, schedule name, start date, and end date are required")
	}
	if !s.catalog.Has(in.TrainingProgram) {
		return &domain.ValidationError{Message: "Invalid training program", Fields: map[string]string{"trainingProgram": "invalid"}}
	}
	if in.EndDate.Before(in.StartDate) {
		return &domain.ValidationError{Message: "End date must not be before start date", Fields: map[string]string{"endDate": "invalid"}}
	}
	if in.MaxParticipants <= 0 {
		in.MaxParticipants = domain.DefaultScheduleCapacity
	}
	if in.Status == "" {
		in.Status = domain.ScheduleStatusScheduled
	}
	exists, err := s.schedules.NameExists(ctx, in.TrainingProgram, in.Name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return &domain.ConflictError{Message: "Schedule name already exists for this training program"}
	}
	return nil
}

func (s *scheduleService) Create(ctx context.Context, actor domain.Actor, in ScheduleInput) (*domain.TrainingSchedule, error) {
	if err := s.check(ctx, &in, 0); err != nil {
		return nil, err
	}
	sch := &domain.TrainingSchedule{
		TrainingProgram: in.TrainingProgram,
		Name:            in.Name,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Location:        in.Location,
		Instructor:      in.Instructor,
		MaxParticipants: in.MaxParticipants,
		Description:     in.Description,
		Status:          in.Status,
		CreatedBy:       actor.UserID,
	}
	if err := s.schedules.Create(ctx, sch); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	logger.InfoContext(ctx, "Schedule created", "scheduleID", sch.ID, "program", sch.TrainingProgram)
	return sch, nil
}

func (s *scheduleService) Update(ctx context.Context, id int32, in ScheduleInput) (*domain.TrainingSchedule, error) {
	var sch *domain.TrainingSchedule
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if sch, err = s.schedules.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := s.check(ctx, &in, id); err != nil {
			return err
		}
		if in.TrainingProgram != sch.TrainingProgram && sch.ParticipantCount > 0 {
			return domain.NewValidationError("Training program cannot change while participants are assigned")
		}
		if in.MaxParticipants < sch.ParticipantCount {
			return domain.NewValidationError(fmt.Sprintf("Capacity cannot be lower than the %d assigned participants", sch.ParticipantCount))
		}
		sch.TrainingProgram = in.TrainingProgram
		sch.Name = in.Name
		sch.StartDate, sch.EndDate = in.StartDate, in.EndDate
		sch.Location = in.Location
		sch.Instructor = in.Instructor
		sch.MaxParticipants = in.MaxParticipants
		sch.Description = in.Description
		sch.Status = in.Status
		return s.schedules.Update(ctx, sch)
	})
	if err != nil {
		return nil, err
	}
	return sch, nil
}

func (s *scheduleService) Delete(ctx context.Context, id int32) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.schedules.Delete(ctx, id)
	})
}

// AddParticipants assigns participants of the schedule's program, all or none.
func (s *scheduleService) AddParticipants(ctx context.Context, actor domain.Actor, scheduleID int32, participantIDs []int32) ([]domain.ScheduleParticipant, error) {
	if len(participantIDs) == 0 {
		return nil, &domain.ValidationError{Message: "Participant IDs are required", Fields: map[string]string{"participantIds": "required"}}
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sch, err := s.schedules.GetByIDForUpdate(ctx, scheduleID)
		if err != nil {
			return err
		}
		if len(participantIDs) > sch.AvailableSlots() {
			return domain.NewValidationError(fmt.Sprintf("Cannot add participants. Would exceed maximum capacity of %d", sch.MaxParticipants))
		}
		seen := map[int32]bool{}
		for _, id := range participantIDs {
			if seen[id] {
				return domain.NewValidationError("Duplicate participant in request")
			}
			seen[id] = true

			p, err := s.participants.GetByID(ctx, id)
			if err != nil {
				if isNotFound(err) {
					return domain.NewValidationError("Some participants not found or do not match the training program")
				}
				return err
			}
			if p.TrainingProgram != sch.TrainingProgram {
				return domain.NewValidationError("Some participants not found or do not match the training program")
			}
			assigned, err := s.schedules.AssignedScheduleID(ctx, id)
			if err != nil {
				return err
			}
			if assigned != nil {
				return &domain.ConflictError{Message: fmt.Sprintf("Participant %s is already assigned to a schedule", p.RegistrationNumber)}
			}
			if err := s.schedules.AddParticipant(ctx, &domain.ScheduleParticipant{
				ScheduleID:    scheduleID,
				ParticipantID: id,
				AssignedAt:    s.now(),
				AssignedBy:    actor.UserID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Participants added to schedule", "scheduleID", scheduleID, "count", len(participantIDs))
	return s.schedules.ListParticipants(ctx, scheduleID)
}

func (s *scheduleService) RemoveParticipant(ctx context.Context, scheduleID, participantID int32) error {
	removed, err := s.schedules.RemoveParticipant(ctx, scheduleID, participantID)
	if err != nil {
		return err
	}
	if !removed {
		return domain.NotFound("participant assignment")
	}
	return nil
}

func (s *scheduleService) ListParticipants(ctx context.Context, scheduleID int32) ([]domain.ScheduleParticipant, error) {
	if _, err := s.schedules.GetByID(ctx, scheduleID); err != nil {
		return nil, err
	}
	return s.schedules.ListParticipants(ctx, scheduleID)
}

func (s *scheduleService) ActiveForProgram(ctx context.Context, program string) ([]domain.TrainingSchedule, error) {
	if !s.catalog.Has(program) {
		return nil, domain.NewValidationError("Invalid training program")
	}
	y, m, d := s.now().Date()
	return s.schedules.ListActive(ctx, program, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
