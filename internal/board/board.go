// Package board is the client-side pipeline board: the list of pipelines as
// last fetched from the server, the commands that mutate it, and the single
// drag session used to move leads between stages.
//
// The board is server-authoritative. Commands never patch local state; each
// successful command is followed by a full refetch that replaces the list.
package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/integration/crmapi"
)

const DefaultCommandTimeout = 30 * time.Second

// Repository is the pipeline repository client as the board uses it. Stage
// and pipeline mutations are addressed by stable id; the client resolves the
// names its endpoints need.
type Repository interface {
	ListPipelines(ctx context.Context) ([]entity.Pipeline, error)
	CreatePipeline(ctx context.Context, input crmapi.CreatePipelineInput) (*entity.Pipeline, error)
	UpdatePipeline(ctx context.Context, id, name string) (*entity.Pipeline, error)
	DeletePipeline(ctx context.Context, id string) (*entity.DeletePipelineResult, error)
	AddStageByID(ctx context.Context, pipelineID, stageName string) (*entity.Pipeline, error)
	DeleteStageByID(ctx context.Context, pipelineID, stageID string) (*entity.Pipeline, error)
	AddLeadToStageByID(ctx context.Context, pipelineID, stageID string, lead entity.LeadSnapshot) (*entity.Pipeline, error)
	MoveLeadByID(ctx context.Context, pipelineID, leadEmail, fromStageID, toStageID string) (*entity.Pipeline, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Notifier shows a message to the user.
type Notifier interface {
	Notify(msg string)
}

type NotifyFunc func(msg string)

func (f NotifyFunc) Notify(msg string) { f(msg) }

type Option func(*Board)

func WithConfirmer(c Confirmer) Option { return func(b *Board) { b.confirm = c } }

func WithNotifier(n Notifier) Option { return func(b *Board) { b.notify = n } }

func WithLogger(log *logrus.Entry) Option { return func(b *Board) { b.log = log } }

// WithCommandTimeout bounds how long a command, and the guard it holds, may
// stay in flight.
func WithCommandTimeout(d time.Duration) Option { return func(b *Board) { b.timeout = d } }

type Board struct {
	repo    Repository
	confirm Confirmer
	notify  Notifier
	log     *logrus.Entry
	timeout time.Duration

	mu        sync.RWMutex
	pipelines []entity.Pipeline
	fetchSeq  uint64 // last refresh started
	applied   uint64 // last refresh whose result replaced pipelines

	guards *guards
	drag   *DragController
}

func New(repo Repository, opts ...Option) *Board {
	b := &Board{
		repo:    repo,
		confirm: ConfirmFunc(func(context.Context, string) bool { return true }),
		notify:  NotifyFunc(func(string) {}),
		log:     logrus.NewEntry(logrus.StandardLogger()),
		timeout: DefaultCommandTimeout,
		guards:  newGuards(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.WithField("component", "board")
	b.drag = &DragController{board: b}
	return b
}

// Drag returns the board's drag controller. There is exactly one.
func (b *Board) Drag() *DragController {
	return b.drag
}

// Refresh replaces the pipeline list with the server's. A refresh that
// started before a newer one already applied is discarded, so concurrent
// commands cannot roll the board back to an older listing.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.fetchSeq++
	seq := b.fetchSeq
	b.mu.Unlock()

	pipelines, err := b.repo.ListPipelines(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq < b.applied {
		return nil
	}
	b.applied = seq
	b.pipelines = make([]entity.Pipeline, len(pipelines))
	for i, p := range pipelines {
		b.pipelines[i] = p.Clone()
	}
	return nil
}

// Pipelines returns a deep copy of the current list.
func (b *Board) Pipelines() []entity.Pipeline {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]entity.Pipeline, len(b.pipelines))
	for i, p := range b.pipelines {
		out[i] = p.Clone()
	}
	return out
}

func (b *Board) Pipeline(name string) (entity.Pipeline, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, p := range b.pipelines {
		if p.Name == name {
			return p.Clone(), true
		}
	}
	return entity.Pipeline{}, false
}

// IsLeadInStage checks the local snapshot only.
func (b *Board) IsLeadInStage(leadID, pipelineName, stageName string) bool {
	p, ok := b.Pipeline(pipelineName)
	if !ok {
		return false
	}
	st, ok := p.Stage(stageName)
	return ok && st.HasLead(leadID)
}

func (b *Board) resolvePipeline(pipelineName string) (entity.Pipeline, error) {
	p, ok := b.Pipeline(pipelineName)
	if !ok {
		return entity.Pipeline{}, fmt.Errorf("%w: %q", ErrUnknownPipeline, pipelineName)
	}
	return p, nil
}

// resolve maps names to the stable ids of the current snapshot. The stage
// is never nil on success.
func (b *Board) resolve(pipelineName, stageName string) (entity.Pipeline, *entity.Stage, error) {
	p, err := b.resolvePipeline(pipelineName)
	if err != nil {
		return entity.Pipeline{}, nil, err
	}
	st, ok := p.Stage(stageName)
	if !ok || stageName == "" {
		return entity.Pipeline{}, nil, fmt.Errorf("%w: %q in pipeline %q", ErrUnknownStage, stageName, pipelineName)
	}
	return p, st, nil
}

// surface reports a failed command to the user once and returns it.
// Declines and refused repeats of an in-flight command stay silent; the
// renderer shows those controls disabled.
func (b *Board) surface(op string, err error) error {
	if err == nil || isSilent(err) {
		return err
	}
	b.log.WithError(err).WithField("op", op).Info("command failed")
	b.notify.Notify(UserMessage(err))
	return err
}
