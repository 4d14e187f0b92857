package crmapi

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

const (
	lookupTTL     = 30 * time.Minute
	lookupCleanup = 10 * time.Minute
)

type StageRef struct {
	PipelineID string
	Name       string
}

// Lookup maps stable pipeline and stage ids to the names the mutation
// endpoints are addressed by. Entries age out; callers repopulate with a
// pipeline listing on a miss.
type Lookup struct {
	mu sync.Mutex
	c  *cache.Cache
}

func NewLookup() *Lookup {
	return &Lookup{c: cache.New(lookupTTL, lookupCleanup)}
}

func pipelineIDKey(id string) string     { return "pipeline-id:" + id }
func pipelineNameKey(name string) string { return "pipeline-name:" + name }
func pipelineStagesKey(id string) string { return "pipeline-stages:" + id }
func stageKey(id string) string          { return "stage:" + id }

// Observe records a pipeline as the server last returned it, dropping any
// stale name or stage entries for the same id.
func (l *Lookup) Observe(p entity.Pipeline) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observeLocked(p)
}

// Replace resets the table to exactly the given pipelines.
func (l *Lookup) Replace(pipelines []entity.Pipeline) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.c.Flush()
	for _, p := range pipelines {
		l.observeLocked(p)
	}
}

func (l *Lookup) Forget(pipelineID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.forgetLocked(pipelineID)
}

func (l *Lookup) PipelineName(id string) (string, bool) {
	v, ok := l.c.Get(pipelineIDKey(id))
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (l *Lookup) PipelineID(name string) (string, bool) {
	v, ok := l.c.Get(pipelineNameKey(name))
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (l *Lookup) Stage(id string) (StageRef, bool) {
	v, ok := l.c.Get(stageKey(id))
	if !ok {
		return StageRef{}, false
	}
	return v.(StageRef), true
}

func (l *Lookup) observeLocked(p entity.Pipeline) {
	l.forgetLocked(p.ID)

	l.c.SetDefault(pipelineIDKey(p.ID), p.Name)
	l.c.SetDefault(pipelineNameKey(p.Name), p.ID)

	ids := make([]string, 0, len(p.Stages))
	for _, s := range p.Stages {
		l.c.SetDefault(stageKey(s.ID), StageRef{PipelineID: p.ID, Name: s.Name})
		ids = append(ids, s.ID)
	}
	l.c.SetDefault(pipelineStagesKey(p.ID), ids)
}

func (l *Lookup) forgetLocked(pipelineID string) {
	if name, ok := l.c.Get(pipelineIDKey(pipelineID)); ok {
		if owner, ok := l.c.Get(pipelineNameKey(name.(string))); ok && owner.(string) == pipelineID {
			l.c.Delete(pipelineNameKey(name.(string)))
		}
	}
	if ids, ok := l.c.Get(pipelineStagesKey(pipelineID)); ok {
		for _, id := range ids.([]string) {
			l.c.Delete(stageKey(id))
		}
	}
	l.c.Delete(pipelineIDKey(pipelineID))
	l.c.Delete(pipelineStagesKey(pipelineID))
}

// normalize fills stage ids for backends that do not assign them.
func normalize(p *entity.Pipeline) {
	for i := range p.Stages {
		if p.Stages[i].ID == "" {
			p.Stages[i].ID = p.ID + "/" + p.Stages[i].Name
		}
		if p.Stages[i].Leads == nil {
			p.Stages[i].Leads = []entity.LeadSnapshot{}
		}
	}
}
