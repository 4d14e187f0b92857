package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/memstore"
	"github.com/xavierca1/ligue-pipeline/internal/logging"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishPipelineEvent(ctx context.Context, event entity.PipelineEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

const owner = "owner-1"

var ana = entity.LeadSnapshot{ID: "l1", Name: "Ana", Email: "a@x.com"}

func newService(t *testing.T) (*PipelineService, *MockEventPublisher) {
	t.Helper()
	events := new(MockEventPublisher)
	events.On("PublishPipelineEvent", mock.Anything, mock.Anything).Return(nil)
	return NewPipelineService(memstore.NewPipelineStore(), events, logging.Discard()), events
}

func salesInput() CreatePipelineInput {
	return CreatePipelineInput{
		Name: "Sales",
		Stages: []CreateStageInput{
			{Name: "New", Leads: []entity.LeadSnapshot{ana}},
			{Name: "Contacted"},
		},
	}
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *DomainError
	require.True(t, errors.As(err, &de), "expected a domain error, got %v", err)
	return de.Code
}

// TestCreatePipeline - stages keep their order and get ids
func TestCreatePipeline(t *testing.T) {
	svc, events := newService(t)

	p, err := svc.Create(context.Background(), owner, salesInput())
	require.NoError(t, err)
	assert.Equal(t, "Sales", p.Name)
	require.Len(t, p.Stages, 2)
	assert.NotEmpty(t, p.Stages[0].ID)
	assert.NotEqual(t, p.Stages[0].ID, p.Stages[1].ID)
	assert.Len(t, p.Stages[0].Leads, 1)
	assert.NotNil(t, p.Stages[1].Leads)

	events.AssertCalled(t, "PublishPipelineEvent", mock.Anything, mock.MatchedBy(func(ev entity.PipelineEvent) bool {
		return ev.Type == entity.EventPipelineCreated && ev.PipelineName == "Sales" && !ev.OccurredAt.IsZero()
	}))

	_, err = svc.Create(context.Background(), owner, salesInput())
	assert.Equal(t, CodePipelineExists, domainCode(t, err))

	_, err = svc.Create(context.Background(), "owner-2", salesInput())
	assert.NoError(t, err, "names are unique per owner")
}

func TestCreatePipelineValidation(t *testing.T) {
	svc, events := newService(t)

	cases := map[string]CreatePipelineInput{
		"empty name":        {Name: " ", Stages: []CreateStageInput{{Name: "New", Leads: []entity.LeadSnapshot{ana}}}},
		"no stages":         {Name: "Sales"},
		"empty stage name":  {Name: "Sales", Stages: []CreateStageInput{{Name: "New", Leads: []entity.LeadSnapshot{ana}}, {Name: ""}}},
		"duplicate stage":   {Name: "Sales", Stages: []CreateStageInput{{Name: "New", Leads: []entity.LeadSnapshot{ana}}, {Name: "New"}}},
		"no leads":          {Name: "Sales", Stages: []CreateStageInput{{Name: "New"}}},
		"duplicate in one":  {Name: "Sales", Stages: []CreateStageInput{{Name: "New", Leads: []entity.LeadSnapshot{ana, ana}}}},
		"missing lead id":   {Name: "Sales", Stages: []CreateStageInput{{Name: "New", Leads: []entity.LeadSnapshot{{Email: "a@x.com"}}}}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, input)
			assert.Equal(t, CodeValidation, domainCode(t, err))
		})
	}

	pipelines, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, pipelines)
	events.AssertNotCalled(t, "PublishPipelineEvent", mock.Anything, mock.Anything)
}

// TestAddStageDuplicate - stage names are unique within a pipeline
func TestAddStageDuplicate(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), owner, salesInput())
	require.NoError(t, err)

	_, err = svc.AddStage(context.Background(), owner, "Sales", AddStageInput{StageName: "New"})
	assert.Equal(t, CodeStageExists, domainCode(t, err))

	p, err := svc.AddStage(context.Background(), owner, "Sales", AddStageInput{StageName: "Won"})
	require.NoError(t, err)
	assert.Len(t, p.Stages, 3)

	_, err = svc.AddStage(context.Background(), owner, "Nope", AddStageInput{StageName: "Won"})
	assert.Equal(t, CodePipelineNotFound, domainCode(t, err))
}

func TestDeleteStage(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), owner, salesInput())
	require.NoError(t, err)

	p, err := svc.DeleteStage(context.Background(), owner, "Sales", "Contacted")
	require.NoError(t, err)
	assert.Len(t, p.Stages, 1)

	_, err = svc.DeleteStage(context.Background(), owner, "Sales", "Contacted")
	assert.Equal(t, CodeStageNotFound, domainCode(t, err))
}

func TestAddLeadToStage(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), owner, salesInput())
	require.NoError(t, err)

	_, err = svc.AddLeadToStage(context.Background(), owner, "Sales", "New", ana)
	assert.Equal(t, CodeLeadInStage, domainCode(t, err))

	p, err := svc.AddLeadToStage(context.Background(), owner, "Sales", "Contacted", ana)
	require.NoError(t, err)
	st, _ := p.Stage("Contacted")
	assert.True(t, st.HasLead(ana.ID))
}

// TestMoveLead - the lead ends up in exactly one of the two stages
func TestMoveLead(t *testing.T) {
	svc, events := newService(t)
	_, err := svc.Create(context.Background(), owner, salesInput())
	require.NoError(t, err)

	p, err := svc.MoveLead(context.Background(), owner, "Sales", MoveLeadInput{
		LeadEmail: "a@x.com", FromStageName: "New", ToStageName: "Contacted",
	})
	require.NoError(t, err)

	from, _ := p.Stage("New")
	to, _ := p.Stage("Contacted")
	assert.Empty(t, from.Leads)
	require.Len(t, to.Leads, 1)
	assert.Equal(t, "a@x.com", to.Leads[0].Email)

	events.AssertCalled(t, "PublishPipelineEvent", mock.Anything, mock.MatchedBy(func(ev entity.PipelineEvent) bool {
		return ev.Type == entity.EventLeadMoved && ev.FromStage == "New" && ev.ToStage == "Contacted" && ev.LeadName == "Ana"
	}))
}

func TestMoveLeadErrors(t *testing.T) {
	svc, _ := newService(t)
	twin := entity.LeadSnapshot{ID: "l2", Name: "Ana Twin", Email: "a@x.com"}
	_, err := svc.Create(context.Background(), owner, CreatePipelineInput{
		Name: "Sales",
		Stages: []CreateStageInput{
			{Name: "New", Leads: []entity.LeadSnapshot{ana, twin}},
			{Name: "Contacted", Leads: []entity.LeadSnapshot{{ID: "l3", Email: "c@x.com"}}},
			{Name: "Won", Leads: []entity.LeadSnapshot{{ID: "l3", Email: "c@x.com"}}},
		},
	})
	require.NoError(t, err)

	move := func(email, from, to string) error {
		_, err := svc.MoveLead(context.Background(), owner, "Sales", MoveLeadInput{LeadEmail: email, FromStageName: from, ToStageName: to})
		return err
	}

	assert.Equal(t, CodeLeadEmailAmbiguous, domainCode(t, move("a@x.com", "New", "Contacted")))
	assert.Equal(t, CodeLeadNotFound, domainCode(t, move("z@x.com", "New", "Contacted")))
	assert.Equal(t, CodeStageNotFound, domainCode(t, move("c@x.com", "Contacted", "Lost")))
	assert.Equal(t, CodeLeadInStage, domainCode(t, move("c@x.com", "Contacted", "Won")))
	assert.Equal(t, CodeValidation, domainCode(t, move("c@x.com", "Contacted", "Contacted")))
	assert.Equal(t, CodeValidation, domainCode(t, move("", "Contacted", "Won")))
}

func TestRenameAndDeletePipeline(t *testing.T) {
	svc, _ := newService(t)
	sales, err := svc.Create(context.Background(), owner, salesInput())
	require.NoError(t, err)
	support := salesInput()
	support.Name = "Support"
	_, err = svc.Create(context.Background(), owner, support)
	require.NoError(t, err)

	_, err = svc.Rename(context.Background(), owner, sales.ID, UpdatePipelineInput{Name: "Support"})
	assert.Equal(t, CodePipelineExists, domainCode(t, err))

	p, err := svc.Rename(context.Background(), owner, sales.ID, UpdatePipelineInput{Name: "Enterprise"})
	require.NoError(t, err)
	assert.Equal(t, "Enterprise", p.Name)

	res, err := svc.Delete(context.Background(), owner, sales.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DeletedCount)
	assert.Equal(t, "Enterprise", res.PipelineName)

	_, err = svc.Delete(context.Background(), owner, sales.ID)
	assert.Equal(t, CodePipelineNotFound, domainCode(t, err))

	_, err = svc.Get(context.Background(), "someone-else", sales.ID)
	assert.Error(t, err)
}

// TestPublishFailureDoesNotFailCommand - events are best effort
func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	events := new(MockEventPublisher)
	events.On("PublishPipelineEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := NewPipelineService(memstore.NewPipelineStore(), events, logging.Discard())

	_, err := svc.Create(context.Background(), owner, salesInput())
	assert.NoError(t, err)
	events.AssertNumberOfCalls(t, "PublishPipelineEvent", 1)
}

func TestRefreshSnapshots(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), owner, salesInput())
	require.NoError(t, err)

	leads := []entity.Lead{{ID: "l1", Name: "Ana Lima", Email: "ana@x.com"}}
	n, err := svc.RefreshSnapshots(context.Background(), owner, leads)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", p[0].Stages[0].Leads[0].Email)

	n, err = svc.RefreshSnapshots(context.Background(), owner, leads)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// TestStageNamesAreTrimmedOnLookup - names are stored trimmed, so lookups trim too
func TestStageNamesAreTrimmedOnLookup(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	input := salesInput()
	input.Stages[1].Name = " Contacted "
	_, err := svc.Create(ctx, owner, input)
	require.NoError(t, err)

	_, err = svc.AddStage(ctx, owner, " Sales", AddStageInput{StageName: " Won "})
	require.NoError(t, err)

	p, err := svc.MoveLead(ctx, owner, "Sales ", MoveLeadInput{
		LeadEmail: " a@x.com ", FromStageName: " New", ToStageName: "Contacted ",
	})
	require.NoError(t, err)
	contacted, ok := p.Stage("Contacted")
	require.True(t, ok)
	assert.True(t, contacted.HasLead(ana.ID))

	_, err = svc.AddLeadToStage(ctx, owner, "Sales", " Won", ana)
	require.NoError(t, err)

	p, err = svc.DeleteStage(ctx, owner, " Sales ", " Won ")
	require.NoError(t, err)
	_, ok = p.Stage("Won")
	assert.False(t, ok)

	_, err = svc.MoveLead(ctx, owner, "Sales", MoveLeadInput{
		LeadEmail: "a@x.com", FromStageName: "Contacted", ToStageName: " Contacted ",
	})
	assert.Equal(t, CodeValidation, domainCode(t, err), "trimmed names that match are the same stage")
}
