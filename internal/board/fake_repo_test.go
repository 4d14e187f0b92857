package board

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/integration/crmapi"
)

// fakeRepo plays the server: it keeps pipelines in memory, applies the same
// uniqueness rules and counts every call by name.
type fakeRepo struct {
	mu        sync.Mutex
	pipelines []entity.Pipeline
	calls     map[string]int

	// fail, when set for an operation, is returned instead of running it.
	fail map[string]error
	// gate, when set for an operation, blocks it until the channel closes.
	gate map[string]chan struct{}
	// entered receives the operation name once a gated call is waiting.
	entered chan string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		calls:   make(map[string]int),
		fail:    make(map[string]error),
		gate:    make(map[string]chan struct{}),
		entered: make(chan string, 16),
	}
}

func (f *fakeRepo) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRepo) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	err := f.fail[op]
	gate := f.gate[op]
	f.mu.Unlock()

	if gate != nil {
		f.entered <- op
		select {
		case <-gate:
		case <-ctx.Done():
			return &crmapi.TransportError{Op: op, Err: ctx.Err()}
		}
	}
	return err
}

func conflict(msg string) error {
	return &crmapi.APIError{Status: http.StatusConflict, Code: "CONFLICT", Message: msg}
}

func notFound(msg string) error {
	return &crmapi.APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: msg}
}

func (f *fakeRepo) find(id string) (*entity.Pipeline, error) {
	for i := range f.pipelines {
		if f.pipelines[i].ID == id {
			return &f.pipelines[i], nil
		}
	}
	return nil, notFound("Pipeline not found")
}

func (f *fakeRepo) seed(name string, stages ...entity.Stage) entity.Pipeline {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := entity.Pipeline{ID: uuid.NewString(), Name: name}
	for _, s := range stages {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		p.Stages = append(p.Stages, s)
	}
	f.pipelines = append(f.pipelines, p.Clone())
	return p
}

// ListPipelines reads the data before waiting on its gate, like a response
// that is produced and then delayed in transit.
func (f *fakeRepo) ListPipelines(ctx context.Context) ([]entity.Pipeline, error) {
	f.mu.Lock()
	out := make([]entity.Pipeline, len(f.pipelines))
	for i, p := range f.pipelines {
		out[i] = p.Clone()
	}
	f.mu.Unlock()

	if err := f.enter(ctx, "list"); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeRepo) setGate(op string, gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gate == nil {
		delete(f.gate, op)
		return
	}
	f.gate[op] = gate
}

func (f *fakeRepo) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *fakeRepo) CreatePipeline(ctx context.Context, input crmapi.CreatePipelineInput) (*entity.Pipeline, error) {
	if err := f.enter(ctx, "create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pipelines {
		if p.Name == input.Name {
			return nil, conflict("Pipeline name already exists")
		}
	}
	p := entity.Pipeline{ID: uuid.NewString(), Name: input.Name}
	for _, s := range input.Stages {
		p.Stages = append(p.Stages, entity.Stage{ID: uuid.NewString(), Name: s.Name, Leads: s.Leads})
	}
	f.pipelines = append(f.pipelines, p.Clone())
	return &p, nil
}

func (f *fakeRepo) UpdatePipeline(ctx context.Context, id, name string) (*entity.Pipeline, error) {
	if err := f.enter(ctx, "rename"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.find(id)
	if err != nil {
		return nil, err
	}
	p.Name = name
	out := p.Clone()
	return &out, nil
}

func (f *fakeRepo) DeletePipeline(ctx context.Context, id string) (*entity.DeletePipelineResult, error) {
	if err := f.enter(ctx, "delete_pipeline"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.pipelines {
		if p.ID == id {
			f.pipelines = append(f.pipelines[:i:i], f.pipelines[i+1:]...)
			return &entity.DeletePipelineResult{DeletedCount: 1, PipelineName: p.Name}, nil
		}
	}
	return nil, notFound("Pipeline not found")
}

func (f *fakeRepo) AddStageByID(ctx context.Context, pipelineID, stageName string) (*entity.Pipeline, error) {
	if err := f.enter(ctx, "add_stage"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.find(pipelineID)
	if err != nil {
		return nil, err
	}
	if _, ok := p.Stage(stageName); ok {
		return nil, conflict("Stage already exists")
	}
	p.Stages = append(p.Stages, entity.Stage{ID: uuid.NewString(), Name: stageName, Leads: []entity.LeadSnapshot{}})
	out := p.Clone()
	return &out, nil
}

func (f *fakeRepo) DeleteStageByID(ctx context.Context, pipelineID, stageID string) (*entity.Pipeline, error) {
	if err := f.enter(ctx, "delete_stage"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.find(pipelineID)
	if err != nil {
		return nil, err
	}
	for i, s := range p.Stages {
		if s.ID == stageID {
			p.Stages = append(p.Stages[:i:i], p.Stages[i+1:]...)
			out := p.Clone()
			return &out, nil
		}
	}
	return nil, notFound("Stage not found")
}

func (f *fakeRepo) AddLeadToStageByID(ctx context.Context, pipelineID, stageID string, lead entity.LeadSnapshot) (*entity.Pipeline, error) {
	if err := f.enter(ctx, "add_lead"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.find(pipelineID)
	if err != nil {
		return nil, err
	}
	st, ok := p.StageByID(stageID)
	if !ok {
		return nil, notFound("Stage not found")
	}
	st.Leads = append(st.Leads, lead)
	out := p.Clone()
	return &out, nil
}

func (f *fakeRepo) MoveLeadByID(ctx context.Context, pipelineID, leadEmail, fromStageID, toStageID string) (*entity.Pipeline, error) {
	if err := f.enter(ctx, "move"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.find(pipelineID)
	if err != nil {
		return nil, err
	}
	from, ok := p.StageByID(fromStageID)
	if !ok {
		return nil, notFound("Stage not found")
	}
	idx := from.LeadsByEmail(leadEmail)
	if len(idx) != 1 {
		return nil, notFound("Lead not found in source stage")
	}
	lead := from.RemoveLeadAt(idx[0])
	to, ok := p.StageByID(toStageID)
	if !ok {
		return nil, notFound("Stage not found")
	}
	to.Leads = append(to.Leads, lead)
	out := p.Clone()
	return &out, nil
}

// recorder collects notifications and answers confirmations.
type recorder struct {
	mu       sync.Mutex
	messages []string
	prompts  []string
	answer   bool
}

func (r *recorder) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) Confirm(_ context.Context, prompt string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return r.answer
}

func (r *recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *recorder) Prompts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.prompts...)
}
