package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/integration/crmapi"
)

// run holds key for the duration of call plus the refetch that follows it.
// The guard is released on every path, and the deadline bounds how long a
// hung request can keep it.
func (b *Board) run(ctx context.Context, key guardKey, call func(ctx context.Context) error) error {
	release, err := b.guards.acquire(key)
	if err != nil {
		return err
	}
	defer release()

	return b.submit(ctx, call)
}

func (b *Board) submit(ctx context.Context, call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := call(ctx); err != nil {
		return err
	}
	if err := b.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSavedNotReloaded, err)
	}
	return nil
}

// CreatePipeline submits the draft. The draft is reset only when the server
// accepted it; on any failure it is left as the user filled it in.
func (b *Board) CreatePipeline(ctx context.Context, d *Draft) (*entity.Pipeline, error) {
	input := d.Input()
	if err := crmapi.ValidateCreatePipeline(input); err != nil {
		return nil, b.surface("create_pipeline", err)
	}

	var created *entity.Pipeline
	key := guardKey{scope: scopeCreate, target: strings.TrimSpace(input.Name)}
	err := b.run(ctx, key, func(ctx context.Context) error {
		p, err := b.repo.CreatePipeline(ctx, input)
		created = p
		return err
	})
	if created != nil {
		d.Reset(DefaultStageSlots)
	}
	if err != nil {
		return created, b.surface("create_pipeline", err)
	}

	b.log.WithField("pipeline", created.Name).Info("pipeline created")
	return created, nil
}

func (b *Board) RenamePipeline(ctx context.Context, pipelineName, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return b.surface("rename_pipeline", &crmapi.ValidationError{Field: "name", Message: "is required"})
	}
	p, err := b.resolvePipeline(pipelineName)
	if err != nil {
		return b.surface("rename_pipeline", err)
	}

	err = b.run(ctx, guardKey{scope: scopeRename, pipelineID: p.ID}, func(ctx context.Context) error {
		_, err := b.repo.UpdatePipeline(ctx, p.ID, newName)
		return err
	})
	return b.surface("rename_pipeline", err)
}

// DeletePipeline asks for confirmation first. A decline returns ErrDeclined
// and sends nothing.
func (b *Board) DeletePipeline(ctx context.Context, pipelineName string) (*entity.DeletePipelineResult, error) {
	p, err := b.resolvePipeline(pipelineName)
	if err != nil {
		return nil, b.surface("delete_pipeline", err)
	}

	release, err := b.guards.acquire(guardKey{scope: scopeDeletePipeline, pipelineID: p.ID})
	if err != nil {
		return nil, b.surface("delete_pipeline", err)
	}
	defer release()

	prompt := fmt.Sprintf("Delete pipeline %q and its %d stage(s)?", p.Name, len(p.Stages))
	if !b.confirm.Confirm(ctx, prompt) {
		return nil, ErrDeclined
	}

	var res *entity.DeletePipelineResult
	err = b.submit(ctx, func(ctx context.Context) error {
		r, err := b.repo.DeletePipeline(ctx, p.ID)
		res = r
		return err
	})
	if err != nil {
		return res, b.surface("delete_pipeline", err)
	}
	b.log.WithFields(logrus.Fields{"pipeline": res.PipelineName, "deleted": res.DeletedCount}).Info("pipeline deleted")
	return res, nil
}

// AddStage leaves uniqueness to the server; a duplicate comes back as its
// error message.
func (b *Board) AddStage(ctx context.Context, pipelineName, stageName string) error {
	if strings.TrimSpace(stageName) == "" {
		return b.surface("add_stage", &crmapi.ValidationError{Field: "stageName", Message: "is required"})
	}
	p, err := b.resolvePipeline(pipelineName)
	if err != nil {
		return b.surface("add_stage", err)
	}

	key := guardKey{scope: scopeAddStage, pipelineID: p.ID, target: stageName}
	err = b.run(ctx, key, func(ctx context.Context) error {
		_, err := b.repo.AddStageByID(ctx, p.ID, stageName)
		return err
	})
	return b.surface("add_stage", err)
}

// DeleteStage holds a guard per stage, so deletes of different stages run
// side by side while a repeat on the same stage is refused with ErrBusy.
func (b *Board) DeleteStage(ctx context.Context, pipelineName, stageName string) error {
	p, st, err := b.resolve(pipelineName, stageName)
	if err != nil {
		return b.surface("delete_stage", err)
	}

	release, err := b.guards.acquire(guardKey{scope: scopeDeleteStage, pipelineID: p.ID, target: st.ID})
	if err != nil {
		return b.surface("delete_stage", err)
	}
	defer release()

	prompt := fmt.Sprintf("Delete stage %q from pipeline %q?", st.Name, p.Name)
	if n := len(st.Leads); n > 0 {
		prompt = fmt.Sprintf("Delete stage %q from pipeline %q? Its %d lead(s) will be removed from the pipeline.", st.Name, p.Name, n)
	}
	if !b.confirm.Confirm(ctx, prompt) {
		return ErrDeclined
	}

	err = b.submit(ctx, func(ctx context.Context) error {
		_, err := b.repo.DeleteStageByID(ctx, p.ID, st.ID)
		return err
	})
	return b.surface("delete_stage", err)
}

// AddLead refuses a lead the local snapshot already shows in the stage
// without contacting the server.
func (b *Board) AddLead(ctx context.Context, pipelineName, stageName string, lead entity.Lead) error {
	p, st, err := b.resolve(pipelineName, stageName)
	if err != nil {
		return b.surface("add_lead", err)
	}
	if st.HasLead(lead.ID) {
		return b.surface("add_lead", fmt.Errorf("%w: %s", ErrLeadAlreadyInStage, lead.Name))
	}

	key := guardKey{scope: scopeAddLead, pipelineID: p.ID, target: st.ID + "/" + lead.ID}
	err = b.run(ctx, key, func(ctx context.Context) error {
		_, err := b.repo.AddLeadToStageByID(ctx, p.ID, st.ID, lead.Snapshot())
		return err
	})
	return b.surface("add_lead", err)
}

// MoveLead moves a lead without the drag gesture. It is subject to the same
// single in-flight move as drops.
func (b *Board) MoveLead(ctx context.Context, pipelineName, leadEmail, fromStage, toStage string) error {
	return b.surface("move_lead", b.moveLead(ctx, pipelineName, leadEmail, fromStage, toStage))
}

func (b *Board) moveLead(ctx context.Context, pipelineName, leadEmail, fromStage, toStage string) error {
	if fromStage == toStage {
		return nil
	}
	p, from, err := b.resolve(pipelineName, fromStage)
	if err != nil {
		return err
	}
	to, ok := p.Stage(toStage)
	if !ok {
		return fmt.Errorf("%w: %q in pipeline %q", ErrUnknownStage, toStage, pipelineName)
	}
	if len(from.LeadsByEmail(leadEmail)) == 0 {
		return fmt.Errorf("%w: %s", ErrLeadNotInStage, leadEmail)
	}

	err = b.run(ctx, guardKey{scope: scopeMove}, func(ctx context.Context) error {
		_, err := b.repo.MoveLeadByID(ctx, p.ID, leadEmail, from.ID, to.ID)
		return err
	})
	if err == nil {
		b.log.WithFields(logrus.Fields{
			"pipeline": p.Name, "lead": leadEmail, "from": from.Name, "to": to.Name,
		}).Info("lead moved")
	}
	return err
}

// Deleting reports whether a delete of the stage is in flight. Renderers use
// it to disable the stage's delete control.
func (b *Board) Deleting(pipelineName, stageName string) bool {
	p, st, err := b.resolve(pipelineName, stageName)
	if err != nil {
		return false
	}
	return b.guards.isHeld(guardKey{scope: scopeDeleteStage, pipelineID: p.ID, target: st.ID})
}

func (b *Board) DeletingPipeline(pipelineName string) bool {
	p, err := b.resolvePipeline(pipelineName)
	if err != nil {
		return false
	}
	return b.guards.isHeld(guardKey{scope: scopeDeletePipeline, pipelineID: p.ID})
}

// Moving reports whether a move is in flight.
func (b *Board) Moving() bool {
	return b.guards.isHeld(guardKey{scope: scopeMove})
}

func isSilent(err error) bool {
	return errors.Is(err, ErrDeclined) || errors.Is(err, ErrBusy)
}
