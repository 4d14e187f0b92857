package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

type PipelineService struct {
	Repo   entity.PipelineRepository
	Events EventPublisher
	Log    *logrus.Entry
}

func NewPipelineService(repo entity.PipelineRepository, events EventPublisher, log *logrus.Entry) *PipelineService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PipelineService{
		Repo:   repo,
		Events: events,
		Log:    log.WithField("component", "pipeline_service"),
	}
}

func (s *PipelineService) List(ctx context.Context, ownerID string) ([]entity.Pipeline, error) {
	pipelines, err := s.Repo.List(ctx, ownerID)
	if err != nil {
		return nil, technicalErr("failed to list pipelines", err)
	}
	return pipelines, nil
}

func (s *PipelineService) Get(ctx context.Context, ownerID, id string) (*entity.Pipeline, error) {
	p, err := s.Repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, s.mapRepoErr(err, "pipeline "+id)
	}
	return p, nil
}

func (s *PipelineService) Create(ctx context.Context, ownerID string, input CreatePipelineInput) (*entity.Pipeline, error) {
	if errs := ValidateCreatePipelineInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	now := time.Now().UTC()
	p := &entity.Pipeline{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(input.Name),
		Stages:    make([]entity.Stage, 0, len(input.Stages)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, st := range input.Stages {
		leads := append([]entity.LeadSnapshot{}, st.Leads...)
		p.Stages = append(p.Stages, entity.Stage{
			ID:    uuid.New().String(),
			Name:  strings.TrimSpace(st.Name),
			Leads: leads,
		})
	}

	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, s.mapRepoErr(err, p.Name)
	}

	s.Log.WithFields(logrus.Fields{"owner": ownerID, "pipeline": p.Name, "stages": len(p.Stages)}).Info("pipeline created")
	s.publish(ctx, entity.PipelineEvent{Type: entity.EventPipelineCreated, OwnerID: ownerID, PipelineID: p.ID, PipelineName: p.Name})
	return p, nil
}

func (s *PipelineService) Rename(ctx context.Context, ownerID, id string, input UpdatePipelineInput) (*entity.Pipeline, error) {
	if errs := validateName("name", input.Name); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	name := strings.TrimSpace(input.Name)

	p, err := s.Repo.MutateByID(ctx, ownerID, id, func(p *entity.Pipeline) error {
		p.Name = name
		return nil
	})
	if err != nil {
		return nil, s.mapRepoErr(err, name)
	}

	s.publish(ctx, entity.PipelineEvent{Type: entity.EventPipelineRenamed, OwnerID: ownerID, PipelineID: p.ID, PipelineName: p.Name})
	return p, nil
}

func (s *PipelineService) Delete(ctx context.Context, ownerID, id string) (*entity.DeletePipelineResult, error) {
	p, err := s.Repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, s.mapRepoErr(err, "pipeline "+id)
	}

	n, err := s.Repo.Delete(ctx, ownerID, id)
	if err != nil {
		return nil, technicalErr("failed to delete pipeline", err)
	}

	s.Log.WithFields(logrus.Fields{"owner": ownerID, "pipeline": p.Name}).Info("pipeline deleted")
	s.publish(ctx, entity.PipelineEvent{Type: entity.EventPipelineDeleted, OwnerID: ownerID, PipelineID: p.ID, PipelineName: p.Name})
	return &entity.DeletePipelineResult{DeletedCount: n, PipelineName: p.Name}, nil
}

func (s *PipelineService) AddStage(ctx context.Context, ownerID, pipelineName string, input AddStageInput) (*entity.Pipeline, error) {
	if errs := validateName("stageName", input.StageName); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	stageName := strings.TrimSpace(input.StageName)
	pipelineName = strings.TrimSpace(pipelineName)

	p, err := s.Repo.Mutate(ctx, ownerID, pipelineName, func(p *entity.Pipeline) error {
		if p.StageIndex(stageName) >= 0 {
			return domainErr(CodeStageExists, fmt.Sprintf("stage %q already exists in pipeline %q", stageName, p.Name))
		}
		p.Stages = append(p.Stages, entity.Stage{
			ID:    uuid.New().String(),
			Name:  stageName,
			Leads: []entity.LeadSnapshot{},
		})
		return nil
	})
	if err != nil {
		return nil, s.mapRepoErr(err, pipelineName)
	}

	s.publish(ctx, entity.PipelineEvent{Type: entity.EventStageAdded, OwnerID: ownerID, PipelineID: p.ID, PipelineName: p.Name, Stage: stageName})
	return p, nil
}

func (s *PipelineService) DeleteStage(ctx context.Context, ownerID, pipelineName, stageName string) (*entity.Pipeline, error) {
	pipelineName, stageName = strings.TrimSpace(pipelineName), strings.TrimSpace(stageName)

	p, err := s.Repo.Mutate(ctx, ownerID, pipelineName, func(p *entity.Pipeline) error {
		i := p.StageIndex(stageName)
		if i < 0 {
			return domainErr(CodeStageNotFound, fmt.Sprintf("stage %q not found in pipeline %q", stageName, p.Name))
		}
		p.Stages = append(p.Stages[:i:i], p.Stages[i+1:]...)
		return nil
	})
	if err != nil {
		return nil, s.mapRepoErr(err, pipelineName)
	}

	s.publish(ctx, entity.PipelineEvent{Type: entity.EventStageDeleted, OwnerID: ownerID, PipelineID: p.ID, PipelineName: p.Name, Stage: stageName})
	return p, nil
}

func (s *PipelineService) AddLeadToStage(ctx context.Context, ownerID, pipelineName, stageName string, lead entity.LeadSnapshot) (*entity.Pipeline, error) {
	if strings.TrimSpace(lead.ID) == "" {
		return nil, validationFailed([]ValidationError{{"id", "is required"}})
	}
	pipelineName, stageName = strings.TrimSpace(pipelineName), strings.TrimSpace(stageName)

	p, err := s.Repo.Mutate(ctx, ownerID, pipelineName, func(p *entity.Pipeline) error {
		st, ok := p.Stage(stageName)
		if !ok {
			return domainErr(CodeStageNotFound, fmt.Sprintf("stage %q not found in pipeline %q", stageName, p.Name))
		}
		if st.HasLead(lead.ID) {
			return domainErr(CodeLeadInStage, fmt.Sprintf("lead %s is already in stage %q", lead.ID, stageName))
		}
		st.Leads = append(st.Leads, lead)
		return nil
	})
	if err != nil {
		return nil, s.mapRepoErr(err, pipelineName)
	}

	s.publish(ctx, entity.PipelineEvent{
		Type: entity.EventLeadAdded, OwnerID: ownerID, PipelineID: p.ID, PipelineName: p.Name,
		Stage: stageName, LeadEmail: lead.Email, LeadName: lead.Name,
	})
	return p, nil
}

// MoveLead relocates the lead identified by email. Emails are not unique in
// the directory, so more than one match in the source stage is rejected
// instead of guessing.
func (s *PipelineService) MoveLead(ctx context.Context, ownerID, pipelineName string, input MoveLeadInput) (*entity.Pipeline, error) {
	pipelineName = strings.TrimSpace(pipelineName)
	input.LeadEmail = strings.TrimSpace(input.LeadEmail)
	input.FromStageName = strings.TrimSpace(input.FromStageName)
	input.ToStageName = strings.TrimSpace(input.ToStageName)

	var errs []ValidationError
	if input.LeadEmail == "" {
		errs = append(errs, ValidationError{"leadEmail", "is required"})
	}
	errs = append(errs, validateName("fromStageName", input.FromStageName)...)
	errs = append(errs, validateName("toStageName", input.ToStageName)...)
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if input.FromStageName == input.ToStageName {
		return nil, validationFailed([]ValidationError{{"toStageName", "must differ from fromStageName"}})
	}

	var moved entity.LeadSnapshot
	p, err := s.Repo.Mutate(ctx, ownerID, pipelineName, func(p *entity.Pipeline) error {
		from, ok := p.Stage(input.FromStageName)
		if !ok {
			return domainErr(CodeStageNotFound, fmt.Sprintf("stage %q not found in pipeline %q", input.FromStageName, p.Name))
		}
		to, ok := p.Stage(input.ToStageName)
		if !ok {
			return domainErr(CodeStageNotFound, fmt.Sprintf("stage %q not found in pipeline %q", input.ToStageName, p.Name))
		}

		matches := from.LeadsByEmail(input.LeadEmail)
		switch {
		case len(matches) == 0:
			return domainErr(CodeLeadNotFound, fmt.Sprintf("lead %s not found in stage %q", input.LeadEmail, input.FromStageName))
		case len(matches) > 1:
			return domainErr(CodeLeadEmailAmbiguous, fmt.Sprintf("%d leads share email %s in stage %q", len(matches), input.LeadEmail, input.FromStageName))
		}

		lead := from.Leads[matches[0]]
		if to.HasLead(lead.ID) {
			return domainErr(CodeLeadInStage, fmt.Sprintf("lead %s is already in stage %q", input.LeadEmail, input.ToStageName))
		}
		moved = from.RemoveLeadAt(matches[0])
		to.Leads = append(to.Leads, moved)
		return nil
	})
	if err != nil {
		return nil, s.mapRepoErr(err, pipelineName)
	}

	s.Log.WithFields(logrus.Fields{
		"owner": ownerID, "pipeline": p.Name, "lead": input.LeadEmail,
		"from": input.FromStageName, "to": input.ToStageName,
	}).Info("lead moved")
	s.publish(ctx, entity.PipelineEvent{
		Type: entity.EventLeadMoved, OwnerID: ownerID, PipelineID: p.ID, PipelineName: p.Name,
		FromStage: input.FromStageName, ToStage: input.ToStageName, LeadEmail: moved.Email, LeadName: moved.Name,
	})
	return p, nil
}

// RefreshSnapshots rewrites stage snapshots whose source lead changed in the
// directory. Leads deleted from the directory keep their last snapshot.
func (s *PipelineService) RefreshSnapshots(ctx context.Context, ownerID string, leads []entity.Lead) (int, error) {
	byID := make(map[string]entity.Lead, len(leads))
	for _, l := range leads {
		byID[l.ID] = l
	}

	pipelines, err := s.Repo.List(ctx, ownerID)
	if err != nil {
		return 0, technicalErr("failed to list pipelines", err)
	}

	updated := 0
	for _, p := range pipelines {
		if !hasStaleSnapshot(p, byID) {
			continue
		}
		_, err := s.Repo.MutateByID(ctx, ownerID, p.ID, func(p *entity.Pipeline) error {
			for si := range p.Stages {
				for li, snap := range p.Stages[si].Leads {
					if l, ok := byID[snap.ID]; ok && snap.Differs(l) {
						p.Stages[si].Leads[li] = l.Snapshot()
						updated++
					}
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, entity.ErrPipelineNotFound) {
			return updated, technicalErr("failed to refresh snapshots", err)
		}
	}
	return updated, nil
}

func hasStaleSnapshot(p entity.Pipeline, leads map[string]entity.Lead) bool {
	for _, st := range p.Stages {
		for _, snap := range st.Leads {
			if l, ok := leads[snap.ID]; ok && snap.Differs(l) {
				return true
			}
		}
	}
	return false
}

func (s *PipelineService) mapRepoErr(err error, ref string) error {
	switch {
	case IsDomainError(err):
		return err
	case errors.Is(err, entity.ErrPipelineNotFound):
		return domainErr(CodePipelineNotFound, fmt.Sprintf("pipeline %q not found", ref))
	case errors.Is(err, entity.ErrPipelineNameTaken):
		return domainErr(CodePipelineExists, fmt.Sprintf("pipeline %q already exists", ref))
	}
	return technicalErr("pipeline storage failure", err)
}

func (s *PipelineService) publish(ctx context.Context, ev entity.PipelineEvent) {
	if s.Events == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC()
	if err := s.Events.PublishPipelineEvent(ctx, ev); err != nil {
		s.Log.WithError(err).WithField("event", ev.Type).Warn("failed to publish pipeline event")
	}
}
