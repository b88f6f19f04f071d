package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/repository"
)

var agencyCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

type agencyService struct {
	agencies repository.AgencyRepository
}

func NewAgencyService(agencies repository.AgencyRepository) AgencyService {
	return &agencyService{agencies: agencies}
}

func (s *agencyService) List(ctx context.Context, includeInactive bool) ([]domain.Agency, error) {
	return s.agencies.List(ctx, includeInactive)
}

// Get lets agents read only their own agency.
func (s *agencyService) Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Agency, error) {
	if !actor.Role.IsAdmin() && (actor.AgencyID == nil || *actor.AgencyID != id) {
		return nil, domain.ErrForbidden
	}
	return s.agencies.GetByID(ctx, id)
}

func (s *agencyService) Create(ctx context.Context, in AgencyInput) (*domain.Agency, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if !agencyCodePattern.MatchString(code) || code == domain.SelfAgencyCode {
		return nil, &domain.ValidationError{
			Message: "Agency code must be 2-10 letters or digits",
			Fields:  map[string]string{"code": "invalid"},
		}
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, &domain.ValidationError{Message: "Agency name is required", Fields: map[string]string{"name": "required"}}
	}
	if existing, err := s.agencies.GetByCode(ctx, code); err == nil && existing != nil {
		return nil, &domain.ConflictError{Message: "Agency code already exists"}
	}

	a := &domain.Agency{
		Name:          strings.TrimSpace(in.Name),
		Code:          code,
		ContactPerson: in.ContactPerson,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		Status:        domain.AgencyStatusActive,
	}
	if err := s.agencies.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create agency: %w", err)
	}
	return a, nil
}

// Update changes contact data and status. The code is part of issued
// registration and invoice numbers and never changes.
func (s *agencyService) Update(ctx context.Context, id int32, in AgencyInput) (*domain.Agency, error) {
	a, err := s.agencies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		a.Name = strings.TrimSpace(in.Name)
	}
	if in.ContactPerson != "" {
		a.ContactPerson = in.ContactPerson
	}
	if in.Email != "" {
		a.Email = in.Email
	}
	if in.Phone != "" {
		a.Phone = in.Phone
	}
	if in.Address != "" {
		a.Address = in.Address
	}
	switch in.Status {
	case "":
	case domain.AgencyStatusActive, domain.AgencyStatusInactive:
		a.Status = in.Status
	default:
		return nil, domain.NewValidationError("Invalid agency status")
	}
	if err := s.agencies.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
