package crmapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

func (c *Client) ListLeads(ctx context.Context) ([]entity.Lead, error) {
	var leads []entity.Lead
	if err := c.do(ctx, http.MethodGet, "/leads", nil, &leads); err != nil {
		return nil, err
	}
	return leads, nil
}

func (c *Client) CreateLead(ctx context.Context, input CreateLeadInput) (*entity.Lead, error) {
	if input.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if input.Email == "" {
		return nil, &ValidationError{Field: "email", Message: "is required"}
	}

	var lead entity.Lead
	if err := c.do(ctx, http.MethodPost, "/leads", input, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (c *Client) UpdateLead(ctx context.Context, id string, input CreateLeadInput) (*entity.Lead, error) {
	var lead entity.Lead
	if err := c.do(ctx, http.MethodPut, "/leads/"+url.PathEscape(id), input, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (c *Client) DeleteLead(ctx context.Context, id string) (*entity.DeleteLeadResult, error) {
	var res entity.DeleteLeadResult
	if err := c.do(ctx, http.MethodDelete, "/leads/"+url.PathEscape(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
