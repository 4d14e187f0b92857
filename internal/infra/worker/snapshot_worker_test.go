package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/memstore"
	"github.com/xavierca1/ligue-pipeline/internal/logging"
	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) RefreshSnapshots(ctx context.Context, ownerID string, leads []entity.Lead) (int, error) {
	args := m.Called(ctx, ownerID, leads)
	return args.Int(0), args.Error(1)
}

func seed(t *testing.T, pipelines *memstore.PipelineStore, leads *memstore.LeadStore, owner string) *entity.Lead {
	t.Helper()
	ctx := context.Background()

	lead, err := entity.NewLead(owner, "Ana", "a@x.com", "", "", nil)
	require.NoError(t, err)
	require.NoError(t, leads.Create(ctx, lead))
	require.NoError(t, pipelines.Create(ctx, &entity.Pipeline{
		ID: owner + "-p", OwnerID: owner, Name: "Sales",
		Stages: []entity.Stage{{ID: "s1", Name: "New", Leads: []entity.LeadSnapshot{lead.Snapshot()}}},
	}))
	return lead
}

// TestRunOnceRewritesDriftedSnapshots - a renamed lead shows up in its stage after one pass
func TestRunOnceRewritesDriftedSnapshots(t *testing.T) {
	pipelines, leads := memstore.NewPipelineStore(), memstore.NewLeadStore()
	svc := usecase.NewPipelineService(pipelines, nil, logging.Discard())
	w := NewSnapshotWorker(pipelines, leads, svc, time.Minute, logging.Discard())

	lead := seed(t, pipelines, leads, "owner-1")
	seed(t, pipelines, leads, "owner-2")
	assert.Zero(t, w.RunOnce(context.Background()))

	lead.Name = "Ana Lima"
	require.NoError(t, leads.Update(context.Background(), lead))
	assert.Equal(t, 1, w.RunOnce(context.Background()))

	p, err := pipelines.FindByID(context.Background(), "owner-1", "owner-1-p")
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", p.Stages[0].Leads[0].Name)
}

func TestRunOnceKeepsGoingAfterOwnerFailure(t *testing.T) {
	pipelines, leads := memstore.NewPipelineStore(), memstore.NewLeadStore()
	seed(t, pipelines, leads, "owner-1")
	seed(t, pipelines, leads, "owner-2")

	refresher := new(MockRefresher)
	refresher.On("RefreshSnapshots", mock.Anything, "owner-1", mock.Anything).Return(0, errors.New("conflict"))
	refresher.On("RefreshSnapshots", mock.Anything, "owner-2", mock.Anything).Return(2, nil)

	w := NewSnapshotWorker(pipelines, leads, refresher, time.Minute, logging.Discard())
	assert.Equal(t, 2, w.RunOnce(context.Background()))
	refresher.AssertExpectations(t)
}

func TestStartStopsOnCancel(t *testing.T) {
	pipelines, leads := memstore.NewPipelineStore(), memstore.NewLeadStore()
	refresher := new(MockRefresher)
	w := NewSnapshotWorker(pipelines, leads, refresher, time.Hour, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
