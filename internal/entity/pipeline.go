package entity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPipelineNotFound  = errors.New("pipeline not found")
	ErrPipelineNameTaken = errors.New("pipeline name already exists")
)

type Pipeline struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Name      string    `json:"name"`
	Stages    []Stage   `json:"stages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Stage order inside a pipeline is its progression, earliest first.
type Stage struct {
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name"`
	Leads []LeadSnapshot `json:"leads"`
}

func (p *Pipeline) StageIndex(name string) int {
	for i := range p.Stages {
		if p.Stages[i].Name == name {
			return i
		}
	}
	return -1
}

func (p *Pipeline) Stage(name string) (*Stage, bool) {
	i := p.StageIndex(name)
	if i < 0 {
		return nil, false
	}
	return &p.Stages[i], true
}

func (p *Pipeline) StageByID(id string) (*Stage, bool) {
	for i := range p.Stages {
		if p.Stages[i].ID == id {
			return &p.Stages[i], true
		}
	}
	return nil, false
}

func (p *Pipeline) LeadCount() int {
	n := 0
	for _, s := range p.Stages {
		n += len(s.Leads)
	}
	return n
}

func (s *Stage) HasLead(leadID string) bool {
	for _, l := range s.Leads {
		if l.ID == leadID {
			return true
		}
	}
	return false
}

// LeadsByEmail returns the indexes of every lead in the stage carrying email.
func (s *Stage) LeadsByEmail(email string) []int {
	var idx []int
	for i, l := range s.Leads {
		if l.Email == email {
			idx = append(idx, i)
		}
	}
	return idx
}

func (s *Stage) RemoveLeadAt(i int) LeadSnapshot {
	lead := s.Leads[i]
	s.Leads = append(s.Leads[:i:i], s.Leads[i+1:]...)
	return lead
}

// Clone returns a deep copy so callers can hand out pipelines without sharing
// stage or lead slices.
func (p Pipeline) Clone() Pipeline {
	out := p
	out.Stages = make([]Stage, len(p.Stages))
	for i, s := range p.Stages {
		out.Stages[i] = Stage{
			ID:    s.ID,
			Name:  s.Name,
			Leads: append([]LeadSnapshot(nil), s.Leads...),
		}
		if out.Stages[i].Leads == nil {
			out.Stages[i].Leads = []LeadSnapshot{}
		}
	}
	return out
}

type DeletePipelineResult struct {
	DeletedCount int64  `json:"deletedCount"`
	PipelineName string `json:"pipelineName"`
}

type DeleteLeadResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

type PipelineRepository interface {
	List(ctx context.Context, ownerID string) ([]Pipeline, error)
	FindByID(ctx context.Context, ownerID, id string) (*Pipeline, error)
	Create(ctx context.Context, p *Pipeline) error
	Delete(ctx context.Context, ownerID, id string) (int64, error)
	// Mutate loads the pipeline by name, applies fn and persists the result
	// atomically with respect to other Mutate calls on the same pipeline.
	Mutate(ctx context.Context, ownerID, name string, fn func(p *Pipeline) error) (*Pipeline, error)
	MutateByID(ctx context.Context, ownerID, id string, fn func(p *Pipeline) error) (*Pipeline, error)
	Owners(ctx context.Context) ([]string, error)
}
