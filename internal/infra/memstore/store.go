// Package memstore keeps pipelines and leads in process memory. It backs the
// API server when no DATABASE_URL is configured and is used by tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

type PipelineStore struct {
	mu        sync.Mutex
	pipelines map[string]entity.Pipeline // by id
}

func NewPipelineStore() *PipelineStore {
	return &PipelineStore{pipelines: make(map[string]entity.Pipeline)}
}

func (s *PipelineStore) List(ctx context.Context, ownerID string) ([]entity.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.Pipeline, 0)
	for _, p := range s.pipelines {
		if p.OwnerID == ownerID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *PipelineStore) FindByID(ctx context.Context, ownerID, id string) (*entity.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pipelines[id]
	if !ok || p.OwnerID != ownerID {
		return nil, entity.ErrPipelineNotFound
	}
	c := p.Clone()
	return &c, nil
}

func (s *PipelineStore) Create(ctx context.Context, p *entity.Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byNameLocked(p.OwnerID, p.Name); taken {
		return entity.ErrPipelineNameTaken
	}
	s.pipelines[p.ID] = p.Clone()
	return nil
}

func (s *PipelineStore) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pipelines[id]
	if !ok || p.OwnerID != ownerID {
		return 0, nil
	}
	delete(s.pipelines, id)
	return 1, nil
}

func (s *PipelineStore) Mutate(ctx context.Context, ownerID, name string, fn func(p *entity.Pipeline) error) (*entity.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byNameLocked(ownerID, name)
	if !ok {
		return nil, entity.ErrPipelineNotFound
	}
	return s.applyLocked(p, fn)
}

func (s *PipelineStore) MutateByID(ctx context.Context, ownerID, id string, fn func(p *entity.Pipeline) error) (*entity.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pipelines[id]
	if !ok || p.OwnerID != ownerID {
		return nil, entity.ErrPipelineNotFound
	}
	return s.applyLocked(p, fn)
}

func (s *PipelineStore) Owners(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var owners []string
	for _, p := range s.pipelines {
		if !seen[p.OwnerID] {
			seen[p.OwnerID] = true
			owners = append(owners, p.OwnerID)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

func (s *PipelineStore) applyLocked(p entity.Pipeline, fn func(p *entity.Pipeline) error) (*entity.Pipeline, error) {
	work := p.Clone()
	if err := fn(&work); err != nil {
		return nil, err
	}
	if work.Name != p.Name {
		if other, taken := s.byNameLocked(p.OwnerID, work.Name); taken && other.ID != p.ID {
			return nil, entity.ErrPipelineNameTaken
		}
	}
	work.UpdatedAt = time.Now().UTC()
	s.pipelines[work.ID] = work
	out := work.Clone()
	return &out, nil
}

func (s *PipelineStore) byNameLocked(ownerID, name string) (entity.Pipeline, bool) {
	for _, p := range s.pipelines {
		if p.OwnerID == ownerID && p.Name == name {
			return p, true
		}
	}
	return entity.Pipeline{}, false
}

type LeadStore struct {
	mu    sync.Mutex
	leads map[string]entity.Lead
}

func NewLeadStore() *LeadStore {
	return &LeadStore{leads: make(map[string]entity.Lead)}
}

func (s *LeadStore) List(ctx context.Context, ownerID string) ([]entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.Lead, 0)
	for _, l := range s.leads {
		if l.OwnerID == ownerID {
			out = append(out, copyLead(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *LeadStore) FindByID(ctx context.Context, ownerID, id string) (*entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[id]
	if !ok || l.OwnerID != ownerID {
		return nil, entity.ErrLeadNotFound
	}
	c := copyLead(l)
	return &c, nil
}

func (s *LeadStore) Create(ctx context.Context, lead *entity.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.ID] = copyLead(*lead)
	return nil
}

func (s *LeadStore) Update(ctx context.Context, lead *entity.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.leads[lead.ID]
	if !ok || cur.OwnerID != lead.OwnerID {
		return entity.ErrLeadNotFound
	}
	s.leads[lead.ID] = copyLead(*lead)
	return nil
}

func (s *LeadStore) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[id]
	if !ok || l.OwnerID != ownerID {
		return 0, nil
	}
	delete(s.leads, id)
	return 1, nil
}

func copyLead(l entity.Lead) entity.Lead {
	if l.Info != nil {
		info := make(map[string]string, len(l.Info))
		for k, v := range l.Info {
			info[k] = v
		}
		l.Info = info
	}
	return l
}
