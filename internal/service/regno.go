package service

import (
	"context"
	"fmt"
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository"
	"smy-nav-backend/internal/repository/postgres"
)

const (
	registrationConstraint = "participants_registration_number_key"
	nikConstraint          = "participants_nik_key"
	registrationAttempts   = 5
	registrationBackoff    = 50 * time.Millisecond
)

// RegistrationNumber formats SMY-{agency}-{seq}-{program}.
func RegistrationNumber(agencyCode string, seq int, program string) string {
	return fmt.Sprintf("SMY-%s-%03d-%s", agencyCode, seq, program)
}

// createWithRegistrationNumber assigns the next free number for (agency, program)
// and inserts p. A concurrent insert of the same number hits the unique
// constraint and is retried with a fresh sequence.
func createWithRegistrationNumber(ctx context.Context, repo repository.ParticipantRepository, agencyCode string, p *domain.Participant) error {
	var err error
	for attempt := 1; attempt <= registrationAttempts; attempt++ {
		var seq int
		seq, err = repo.MaxRegistrationSequence(ctx, agencyCode, p.TrainingProgram)
		if err != nil {
			return fmt.Errorf("registration sequence: %w", err)
		}
		p.RegistrationNumber = RegistrationNumber(agencyCode, seq+1, p.TrainingProgram)

		err = repo.Create(ctx, p)
		if err == nil {
			return nil
		}
		if !postgres.IsUniqueViolation(err, registrationConstraint) {
			return nikConflict(err)
		}
		logger.WarnContext(ctx, "Registration number taken, retrying",
			"registration_number", p.RegistrationNumber, "attempt", attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(registrationBackoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("allocate registration number: %w", err)
}

// nikConflict reports a NIK taken by a concurrent writer the same way as one
// found by the up-front check.
func nikConflict(err error) error {
	if postgres.IsUniqueViolation(err, nikConstraint) {
		return errNIKExists()
	}
	return err
}

func errNIKExists() error {
	return &domain.ConflictError{Message: "NIK already exists"}
}
