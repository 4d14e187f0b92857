package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xavierca1/ligue-pipeline/internal/board"
	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

type staticView struct {
	pipelines []entity.Pipeline
	deleting  map[string]bool
}

func (v staticView) Pipelines() []entity.Pipeline { return v.pipelines }

func (v staticView) Deleting(pipelineName, stageName string) bool {
	return v.deleting[pipelineName+"/"+stageName]
}

func (v staticView) DeletingPipeline(pipelineName string) bool { return v.deleting[pipelineName] }

func (v staticView) Moving() bool { return false }

func TestBoardEmpty(t *testing.T) {
	out := Board(staticView{}, board.Session{}, DefaultTheme)
	assert.Contains(t, out, "No pipelines yet.")
}

func TestBoardColumns(t *testing.T) {
	v := staticView{
		pipelines: []entity.Pipeline{{
			Name: "Sales",
			Stages: []entity.Stage{
				{Name: "New", Leads: []entity.LeadSnapshot{{ID: "l1", Name: "Ana", Email: "a@x.com"}}},
				{Name: "Contacted"},
			},
		}},
		deleting: map[string]bool{"Sales/Contacted": true},
	}

	out := Board(v, board.Session{}, DefaultTheme)
	assert.Contains(t, out, "Sales  (1 leads)")
	assert.Contains(t, out, "New (1)")
	assert.Contains(t, out, "Ana <a@x.com>")
	assert.Contains(t, out, "Contacted (0)")
	assert.Contains(t, out, "deleting…")
	assert.Contains(t, out, "empty")
}
