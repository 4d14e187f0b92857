package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

type LeadService struct {
	Repo entity.LeadRepositoryInterface
	Log  *logrus.Entry
}

func NewLeadService(repo entity.LeadRepositoryInterface, log *logrus.Entry) *LeadService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LeadService{Repo: repo, Log: log.WithField("component", "lead_service")}
}

func (s *LeadService) List(ctx context.Context, ownerID string) ([]entity.Lead, error) {
	leads, err := s.Repo.List(ctx, ownerID)
	if err != nil {
		return nil, technicalErr("failed to list leads", err)
	}
	return leads, nil
}

// Create does not enforce email uniqueness; moves detect collisions instead.
func (s *LeadService) Create(ctx context.Context, ownerID string, input CreateLeadInput) (*entity.Lead, error) {
	if errs := ValidateCreateLeadInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	lead, err := entity.NewLead(ownerID, input.Name, input.Email, input.Phone, input.Company, input.Info)
	if err != nil {
		return nil, domainErr(CodeValidation, err.Error())
	}

	if err := s.Repo.Create(ctx, lead); err != nil {
		return nil, technicalErr("failed to create lead", err)
	}

	s.Log.WithFields(logrus.Fields{"owner": ownerID, "lead": lead.ID}).Info("lead created")
	return lead, nil
}

func (s *LeadService) Update(ctx context.Context, ownerID, id string, input CreateLeadInput) (*entity.Lead, error) {
	if errs := ValidateCreateLeadInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	lead, err := s.Repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, domainErr(CodeLeadNotFound, "lead "+id+" not found")
		}
		return nil, technicalErr("failed to load lead", err)
	}

	lead.Name = strings.TrimSpace(input.Name)
	lead.Email = strings.TrimSpace(input.Email)
	lead.Phone = input.Phone
	lead.Company = input.Company
	if input.Info != nil {
		lead.Info = input.Info
	}
	lead.UpdatedAt = time.Now().UTC()

	if err := s.Repo.Update(ctx, lead); err != nil {
		return nil, technicalErr("failed to update lead", err)
	}
	return lead, nil
}

func (s *LeadService) Delete(ctx context.Context, ownerID, id string) (*entity.DeleteLeadResult, error) {
	n, err := s.Repo.Delete(ctx, ownerID, id)
	if err != nil {
		return nil, technicalErr("failed to delete lead", err)
	}
	return &entity.DeleteLeadResult{DeletedCount: n}, nil
}
