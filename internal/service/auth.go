package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository"
	"smy-nav-backend/internal/repository/postgres"
	"smy-nav-backend/internal/security"
	"smy-nav-backend/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const minParticipantAge = 17

var (
	usernameCleaner = regexp.MustCompile(`[^a-z0-9]`)
	hasLower        = regexp.MustCompile(`[a-z]`)
	hasUpper        = regexp.MustCompile(`[A-Z]`)
	hasDigit        = regexp.MustCompile(`[0-9]`)
)

type authService struct {
	tx           repository.Transactor
	users        repository.UserRepository
	agencies     repository.AgencyRepository
	participants ParticipantService
	tokens       security.TokenManager
	now          func() time.Time
}

func NewAuthService(tx repository.Transactor, users repository.UserRepository, agencies repository.AgencyRepository,
	participants ParticipantService, tokens security.TokenManager) AuthService {
	return &authService{
		tx:           tx,
		users:        users,
		agencies:     agencies,
		participants: participants,
		tokens:       tokens,
		now:          time.Now,
	}
}

func (s *authService) Register(ctx context.Context, actor domain.Actor, in RegisterUserInput) (*domain.User, error) {
	logger.EnterMethod("authService.Register", "username", in.Username, "role", in.Role)

	if !actor.Role.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	switch in.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleAgent:
	default:
		return nil, domain.NewValidationError("Invalid role")
	}
	if in.Role == domain.RoleSuperAdmin && actor.Role != domain.RoleSuperAdmin {
		return nil, domain.ErrForbidden
	}
	if in.Role != domain.RoleSuperAdmin && in.AgencyID == nil {
		return nil, &domain.ValidationError{Message: "Agency is required", Fields: map[string]string{"agencyId": "required"}}
	}
	if len(in.Password) < 6 {
		return nil, domain.NewValidationError("Password must be at least 6 characters")
	}
	if in.AgencyID != nil {
		if _, err := s.agencies.GetByID(ctx, *in.AgencyID); err != nil {
			return nil, err
		}
	}

	if err := s.ensureUnique(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Username:     in.Username,
		Email:        strings.ToLower(in.Email),
		PasswordHash: string(hash),
		FullName:     in.FullName,
		Role:         in.Role,
		AgencyID:     in.AgencyID,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	logger.ExitMethod("authService.Register", "userID", u.ID)
	return u, nil
}

func (s *authService) ensureUnique(ctx context.Context, username, email string) error {
	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return &domain.ConflictError{Message: "Username already exists"}
	}
	taken, err = s.users.EmailTaken(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return &domain.ConflictError{Message: "Email already exists"}
	}
	return nil
}

func (s *authService) Login(ctx context.Context, login, password string) (string, *domain.User, error) {
	u, err := s.users.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !u.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		logger.WarnContext(ctx, "Failed to record last login", "userID", u.ID, "error", err)
	}
	u.LastLogin = &now

	token, err := s.tokens.GenerateAccessToken(u)
	if err != nil {
		return "", nil, err
	}
	return token, s.withAgency(ctx, u), nil
}

func (s *authService) Me(ctx context.Context, userID int32) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withAgency(ctx, u), nil
}

func (s *authService) withAgency(ctx context.Context, u *domain.User) *domain.User {
	if u.AgencyID == nil {
		return u
	}
	if a, err := s.agencies.GetByID(ctx, *u.AgencyID); err == nil {
		u.Agency = a
	}
	return u
}

func (s *authService) ChangePassword(ctx context.Context, userID int32, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return domain.NewValidationError("Current password is incorrect")
	}
	if len(next) < 6 {
		return domain.NewValidationError("Password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

// UpdateProfile changes the caller's name and email. The email must not
// belong to another account.
func (s *authService) UpdateProfile(ctx context.Context, userID int32, in UpdateProfileInput) (*domain.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if fullName == "" || email == "" {
		return nil, domain.NewValidationError("Full name and email are required")
	}

	var u *domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if u, err = s.users.GetByID(ctx, userID); err != nil {
			return err
		}
		taken, err := s.users.EmailTakenByOther(ctx, email, userID)
		if err != nil {
			return err
		}
		if taken {
			return &domain.ConflictError{Message: "Email is already taken"}
		}
		u.FullName, u.Email = fullName, email
		err = s.users.UpdateProfile(ctx, u)
		if postgres.IsUniqueViolation(err, "users_email_key") {
			return &domain.ConflictError{Message: "Email is already taken"}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Profile updated", "userID", userID)
	return s.withAgency(ctx, u), nil
}

// RegisterParticipant creates a walk-in participant account and its draft record.
func (s *authService) RegisterParticipant(ctx context.Context, in RegisterParticipantInput) (string, *domain.User, *domain.Participant, error) {
	logger.EnterMethod("authService.RegisterParticipant", "email", in.Email)

	if utils.Age(in.BirthDate, s.now()) < minParticipantAge {
		return "", nil, nil, domain.NewValidationError(fmt.Sprintf("Participants must be at least %d years old", minParticipantAge))
	}
	if err := checkPasswordStrength(in.Password); err != nil {
		return "", nil, nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var (
		user *domain.User
		p    *domain.Participant
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		taken, err := s.users.EmailTaken(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return &domain.ConflictError{Message: "Email already registered"}
		}
		username, err := s.freeUsername(ctx, email)
		if err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user = &domain.User{
			Username:     username,
			Email:        email,
			PasswordHash: string(hash),
			FullName:     in.FullName,
			Role:         domain.RoleParticipant,
			IsActive:     true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		birth := in.BirthDate
		p, err = s.participants.SelfRegister(ctx, domain.Actor{UserID: user.ID, Role: domain.RoleParticipant}, ParticipantData{
			FullName:        in.FullName,
			Email:           email,
			Phone:           in.Phone,
			BirthDate:       &birth,
			TrainingProgram: in.TrainingProgram,
			PaymentOption:   domain.PaymentOptionPayLater,
		})
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("authService.RegisterParticipant", err)
		return "", nil, nil, err
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return "", nil, nil, err
	}
	logger.ExitMethod("authService.RegisterParticipant", "userID", user.ID, "participantID", p.ID)
	return token, user, p, nil
}

// freeUsername derives a username from the email local part, suffixing a
// counter until it is unused.
func (s *authService) freeUsername(ctx context.Context, email string) (string, error) {
	base := usernameCleaner.ReplaceAllString(strings.ToLower(strings.SplitN(email, "@", 2)[0]), "")
	if base == "" {
		base = "participant"
	}
	candidate := base
	for i := 1; ; i++ {
		taken, err := s.users.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

func checkPasswordStrength(pw string) error {
	if len(pw) < 6 {
		return domain.NewValidationError("Password must be at least 6 characters")
	}
	if !hasLower.MatchString(pw) || !hasUpper.MatchString(pw) || !hasDigit.MatchString(pw) {
		return domain.NewValidationError("Password must contain upper case, lower case and a digit")
	}
	return nil
}
