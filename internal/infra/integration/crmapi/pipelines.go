package crmapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

func pipelinePath(pipelineName string) string {
	return "/pipelines/" + url.PathEscape(pipelineName)
}

func stagePath(pipelineName, stageName string) string {
	return pipelinePath(pipelineName) + "/stages/" + url.PathEscape(stageName)
}

// ValidateCreatePipeline applies the rules the server would otherwise reject:
// a name, named stages, and at least one lead across all stages.
func ValidateCreatePipeline(input CreatePipelineInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if len(input.Stages) == 0 {
		return &ValidationError{Field: "stages", Message: "at least one stage is required"}
	}
	leads := 0
	for i, s := range input.Stages {
		if strings.TrimSpace(s.Name) == "" {
			return &ValidationError{Field: fmt.Sprintf("stages[%d].name", i), Message: "is required"}
		}
		leads += len(s.Leads)
	}
	if leads == 0 {
		return &ValidationError{Field: "stages", Message: "at least one lead is required"}
	}
	return nil
}

func (c *Client) CreatePipeline(ctx context.Context, input CreatePipelineInput) (*entity.Pipeline, error) {
	if err := ValidateCreatePipeline(input); err != nil {
		return nil, err
	}
	for i := range input.Stages {
		if input.Stages[i].Leads == nil {
			input.Stages[i].Leads = []entity.LeadSnapshot{}
		}
	}
	return c.pipelineCall(ctx, http.MethodPost, "/pipelines", input)
}

func (c *Client) ListPipelines(ctx context.Context) ([]entity.Pipeline, error) {
	var pipelines []entity.Pipeline
	if err := c.do(ctx, http.MethodGet, "/pipelines", nil, &pipelines); err != nil {
		return nil, err
	}
	for i := range pipelines {
		normalize(&pipelines[i])
	}
	c.lookup.Replace(pipelines)
	return pipelines, nil
}

func (c *Client) GetPipeline(ctx context.Context, id string) (*entity.Pipeline, error) {
	return c.pipelineCall(ctx, http.MethodGet, "/pipelines/"+url.PathEscape(id), nil)
}

func (c *Client) UpdatePipeline(ctx context.Context, id, name string) (*entity.Pipeline, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	return c.pipelineCall(ctx, http.MethodPut, "/pipelines/"+url.PathEscape(id), updatePipelineRequest{Name: name})
}

func (c *Client) DeletePipeline(ctx context.Context, id string) (*entity.DeletePipelineResult, error) {
	var res entity.DeletePipelineResult
	if err := c.do(ctx, http.MethodDelete, "/pipelines/"+url.PathEscape(id), nil, &res); err != nil {
		return nil, err
	}
	c.lookup.Forget(id)
	return &res, nil
}

func (c *Client) AddStage(ctx context.Context, pipelineName, stageName string) (*entity.Pipeline, error) {
	if strings.TrimSpace(stageName) == "" {
		return nil, &ValidationError{Field: "stageName", Message: "is required"}
	}
	return c.pipelineCall(ctx, http.MethodPost, pipelinePath(pipelineName)+"/stages", addStageRequest{StageName: stageName})
}

func (c *Client) DeleteStage(ctx context.Context, pipelineName, stageName string) (*entity.Pipeline, error) {
	return c.pipelineCall(ctx, http.MethodDelete, stagePath(pipelineName, stageName), nil)
}

// AddLeadToStage is not idempotent; callers check the stage first.
func (c *Client) AddLeadToStage(ctx context.Context, pipelineName, stageName string, lead entity.LeadSnapshot) (*entity.Pipeline, error) {
	return c.pipelineCall(ctx, http.MethodPost, stagePath(pipelineName, stageName)+"/leads", lead)
}

// MoveLeadBetweenStages addresses the lead by email, which the server does
// not guarantee to be unique.
func (c *Client) MoveLeadBetweenStages(ctx context.Context, pipelineName, leadEmail, fromStageName, toStageName string) (*entity.Pipeline, error) {
	c.log.WithFields(logrus.Fields{
		"pipeline": pipelineName, "lead": leadEmail, "from": fromStageName, "to": toStageName,
	}).Debug("moving lead")
	return c.pipelineCall(ctx, http.MethodPatch, pipelinePath(pipelineName)+"/move-lead", moveLeadRequest{
		LeadEmail:     leadEmail,
		FromStageName: fromStageName,
		ToStageName:   toStageName,
	})
}

func (c *Client) pipelineCall(ctx context.Context, method, path string, body any) (*entity.Pipeline, error) {
	var p entity.Pipeline
	if err := c.do(ctx, method, path, body, &p); err != nil {
		return nil, err
	}
	normalize(&p)
	c.lookup.Observe(p)
	return &p, nil
}

// The ByID variants resolve stable ids through the lookup table and call the
// name-addressed endpoints. A miss triggers one listing before giving up.

func (c *Client) AddStageByID(ctx context.Context, pipelineID, stageName string) (*entity.Pipeline, error) {
	name, err := c.resolvePipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	return c.AddStage(ctx, name, stageName)
}

func (c *Client) DeleteStageByID(ctx context.Context, pipelineID, stageID string) (*entity.Pipeline, error) {
	name, stage, err := c.resolveStage(ctx, pipelineID, stageID)
	if err != nil {
		return nil, err
	}
	return c.DeleteStage(ctx, name, stage)
}

func (c *Client) AddLeadToStageByID(ctx context.Context, pipelineID, stageID string, lead entity.LeadSnapshot) (*entity.Pipeline, error) {
	name, stage, err := c.resolveStage(ctx, pipelineID, stageID)
	if err != nil {
		return nil, err
	}
	return c.AddLeadToStage(ctx, name, stage, lead)
}

func (c *Client) MoveLeadByID(ctx context.Context, pipelineID, leadEmail, fromStageID, toStageID string) (*entity.Pipeline, error) {
	name, from, err := c.resolveStage(ctx, pipelineID, fromStageID)
	if err != nil {
		return nil, err
	}
	_, to, err := c.resolveStage(ctx, pipelineID, toStageID)
	if err != nil {
		return nil, err
	}
	return c.MoveLeadBetweenStages(ctx, name, leadEmail, from, to)
}

func (c *Client) resolvePipeline(ctx context.Context, pipelineID string) (string, error) {
	if name, ok := c.lookup.PipelineName(pipelineID); ok {
		return name, nil
	}
	if _, err := c.ListPipelines(ctx); err != nil {
		return "", err
	}
	if name, ok := c.lookup.PipelineName(pipelineID); ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPipeline, pipelineID)
}

func (c *Client) resolveStage(ctx context.Context, pipelineID, stageID string) (string, string, error) {
	ref, ok := c.lookup.Stage(stageID)
	if !ok {
		if _, err := c.ListPipelines(ctx); err != nil {
			return "", "", err
		}
		if ref, ok = c.lookup.Stage(stageID); !ok {
			return "", "", fmt.Errorf("%w: %s", ErrUnknownStage, stageID)
		}
	}
	if ref.PipelineID != pipelineID {
		return "", "", fmt.Errorf("%w: stage %s does not belong to pipeline %s", ErrUnknownStage, stageID, pipelineID)
	}
	name, err := c.resolvePipeline(ctx, pipelineID)
	if err != nil {
		return "", "", err
	}
	return name, ref.Name, nil
}
