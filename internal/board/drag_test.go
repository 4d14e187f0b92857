package board

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/integration/crmapi"
)

func stageLeads(t *testing.T, b *Board, pipeline, stage string) []entity.LeadSnapshot {
	t.Helper()
	p, ok := b.Pipeline(pipeline)
	require.True(t, ok)
	st, ok := p.Stage(stage)
	require.True(t, ok)
	return st.Leads
}

// TestDragMoveScenario - a@x.com goes from New to Contacted in Sales
func TestDragMoveScenario(t *testing.T) {
	repo := newFakeRepo()
	seedSales(repo)
	b, rec := newTestBoard(t, repo)
	drag := b.Drag()

	data, err := drag.Start("Sales", "New", leadA.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, PhaseDragging, drag.Session().Phase)

	drag.Enter("Contacted")
	assert.Equal(t, "Contacted", drag.Session().Hover)

	outcome, err := drag.Drop(context.Background(), "Sales", "Contacted", data)
	require.NoError(t, err)
	assert.Equal(t, DropMoved, outcome)
	assert.Equal(t, 1, repo.count("move"))

	assert.Empty(t, stageLeads(t, b, "Sales", "New"))
	contacted := stageLeads(t, b, "Sales", "Contacted")
	require.Len(t, contacted, 1)
	assert.Equal(t, "a@x.com", contacted[0].Email)

	require.Len(t, rec.Prompts(), 1)
	assert.Equal(t, `Move Ana from "New" to "Contacted"?`, rec.Prompts()[0])
	assert.Equal(t, Session{}, drag.Session())
}

// TestDragSameStageIsNoop - no prompt and no move call
func TestDragSameStageIsNoop(t *testing.T) {
	repo := newFakeRepo()
	seedSales(repo)
	b, rec := newTestBoard(t, repo)

	data, err := b.Drag().Start("Sales", "New", leadA.Snapshot())
	require.NoError(t, err)

	outcome, err := b.Drag().Drop(context.Background(), "Sales", "New", data)
	require.NoError(t, err)
	assert.Equal(t, DropNoop, outcome)
	assert.Equal(t, 0, repo.count("move"))
	assert.Empty(t, rec.Prompts())
	assert.Equal(t, PhaseIdle, b.Drag().Session().Phase)
}

// TestDragCrossPipelineRejected - rejected before any network call
func TestDragCrossPipelineRejected(t *testing.T) {
	repo := newFakeRepo()
	seedSales(repo)
	repo.seed("Support", entity.Stage{Name: "Open"})
	b, rec := newTestBoard(t, repo)

	data, err := b.Drag().Start("Sales", "New", leadA.Snapshot())
	require.NoError(t, err)

	outcome, err := b.Drag().Drop(context.Background(), "Support", "Open", data)
	assert.ErrorIs(t, err, ErrCrossPipelineMove)
	assert.Equal(t, DropRejected, outcome)
	assert.Equal(t, 0, repo.count("move"))
	assert.Equal(t, []string{ErrCrossPipelineMove.Error()}, rec.Messages())
	assert.Equal(t, PhaseIdle, b.Drag().Session().Phase)
}

func TestDragDeclined(t *testing.T) {
	repo := newFakeRepo()
	seedSales(repo)
	b, rec := newTestBoard(t, repo)
	rec.answer = false

	data, err := b.Drag().Start("Sales", "New", leadA.Snapshot())
	require.NoError(t, err)

	outcome, err := b.Drag().Drop(context.Background(), "Sales", "Contacted", data)
	require.NoError(t, err)
	assert.Equal(t, DropDeclined, outcome)
	assert.Equal(t, 0, repo.count("move"))
	assert.Len(t, stageLeads(t, b, "Sales", "New"), 1)
	assert.Equal(t, PhaseIdle, b.Drag().Session().Phase)
}

// TestDragMoveFailure - the server message is surfaced and the listing is unchanged
func TestDragMoveFailure(t *testing.T) {
	repo := newFakeRepo()
	seedSales(repo)
	b, rec := newTestBoard(t, repo)
	repo.setFail("move", conflict("More than one lead in stage \"New\" has email a@x.com"))

	data, err := b.Drag().Start("Sales", "New", leadA.Snapshot())
	require.NoError(t, err)

	outcome, err := b.Drag().Drop(context.Background(), "Sales", "Contacted", data)
	require.Error(t, err)
	assert.Equal(t, DropFailed, outcome)
	assert.Equal(t, []string{"More than one lead in stage \"New\" has email a@x.com"}, rec.Messages())
	assert.Len(t, stageLeads(t, b, "Sales", "New"), 1)
	assert.Equal(t, PhaseIdle, b.Drag().Session().Phase)
}

func TestDragUnknownTargetStage(t *testing.T) {
	repo := newFakeRepo()
	seedSales(repo)
	b, _ := newTestBoard(t, repo)

	data, err := b.Drag().Start("Sales", "New", leadA.Snapshot())
	require.NoError(t, err)

	outcome, err := b.Drag().Drop(context.Background(), "Sales", "Won", data)
	assert.ErrorIs(t, err, ErrUnknownStage)
	assert.Equal(t, DropRejected, outcome)
	assert.Equal(t, PhaseIdle, b.Drag().Session().Phase)
}

// TestDropWhileMovingIsRefused - only one move may be in flight
func TestDropWhileMovingIsRefused(t *testing.T) {
	repo := newFakeRepo()
	seedSales(repo)
	b, _ := newTestBoard(t, repo)
	drag := b.Drag()

	gate := make(chan struct{})
	repo.setGate("move", gate)

	data, err := drag.Start("Sales", "New", leadA.Snapshot())
	require.NoError(t, err)

	type result struct {
		outcome DropOutcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		o, err := drag.Drop(context.Background(), "Sales", "Contacted", data)
		done <- result{o, err}
	}()
	waitEntered(t, repo, "move")

	assert.Equal(t, PhaseMoving, drag.Session().Phase)
	assert.True(t, b.Moving())

	outcome, err := drag.Drop(context.Background(), "Sales", "Contacted", data)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, DropRejected, outcome)
	assert.Equal(t, PhaseMoving, drag.Session().Phase, "the in-flight move is undisturbed")

	_, err = drag.Start("Sales", "New", leadA.Snapshot())
	assert.ErrorIs(t, err, ErrDragActive)
	assert.False(t, drag.Cancel())

	close(gate)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, DropMoved, res.outcome)
	assert.Equal(t, 1, repo.count("move"))
	assert.Equal(t, PhaseIdle, drag.Session().Phase)
}

func TestDragStartRules(t *testing.T) {
	repo := newFakeRepo()
	seedSales(repo)
	b, _ := newTestBoard(t, repo)
	drag := b.Drag()

	_, err := drag.Start("Sales", "Contacted", leadA.Snapshot())
	assert.ErrorIs(t, err, ErrLeadNotInStage)

	_, err = drag.Start("Nope", "New", leadA.Snapshot())
	assert.ErrorIs(t, err, ErrUnknownPipeline)

	_, err = drag.Start("Sales", "New", leadA.Snapshot())
	require.NoError(t, err)
	_, err = drag.Start("Sales", "New", leadA.Snapshot())
	assert.ErrorIs(t, err, ErrDragActive)

	assert.True(t, drag.Cancel())
	assert.Equal(t, PhaseIdle, drag.Session().Phase)
}

func TestDropWithoutDrag(t *testing.T) {
	repo := newFakeRepo()
	seedSales(repo)
	b, _ := newTestBoard(t, repo)

	_, err := b.Drag().Drop(context.Background(), "Sales", "Contacted", "")
	assert.ErrorIs(t, err, ErrNoDrag)
}

func TestDragHover(t *testing.T) {
	repo := newFakeRepo()
	seedSales(repo)
	b, _ := newTestBoard(t, repo)
	drag := b.Drag()

	drag.Enter("Contacted")
	assert.Empty(t, drag.Session().Hover, "no hover while idle")

	_, err := drag.Start("Sales", "New", leadA.Snapshot())
	require.NoError(t, err)

	drag.Enter("Contacted")
	drag.Leave("New")
	assert.Equal(t, "Contacted", drag.Session().Hover)
	drag.Leave("Contacted")
	assert.Empty(t, drag.Session().Hover)
}

func TestDragPayload(t *testing.T) {
	p := DragPayload{Pipeline: "Sales", Stage: "New", LeadID: "lead-a", LeadName: "Ana", LeadEmail: "a@x.com"}
	got, err := DecodePayload(p.Encode())
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = DecodePayload("not json")
	assert.Error(t, err)
	_, err = DecodePayload(`{"pipeline":"Sales"}`)
	assert.Error(t, err)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "moving", PhaseMoving.String())
	assert.Equal(t, "moved", DropMoved.String())
}

// TestDragMovedButNotReloaded - the server moved the lead; only the reload failed
func TestDragMovedButNotReloaded(t *testing.T) {
	repo := newFakeRepo()
	seedSales(repo)
	b, rec := newTestBoard(t, repo)

	data, err := b.Drag().Start("Sales", "New", leadA.Snapshot())
	require.NoError(t, err)
	repo.setFail("list", &crmapi.TransportError{Op: "GET /pipelines", Err: errors.New("connection reset")})

	outcome, err := b.Drag().Drop(context.Background(), "Sales", "Contacted", data)
	assert.ErrorIs(t, err, ErrSavedNotReloaded)
	assert.Equal(t, DropMoved, outcome)
	assert.Equal(t, 1, repo.count("move"))
	assert.Equal(t, []string{msgNotReloaded}, rec.Messages())
	assert.Equal(t, Session{}, b.Drag().Session())
}
