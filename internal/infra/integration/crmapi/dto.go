package crmapi

import "github.com/xavierca1/ligue-pipeline/internal/entity"

type CreateLeadInput struct {
	Name    string            `json:"name"`
	Email   string            `json:"email"`
	Phone   string            `json:"phone,omitempty"`
	Company string            `json:"company,omitempty"`
	Info    map[string]string `json:"info,omitempty"`
}

type StageInput struct {
	Name  string                `json:"name"`
	Leads []entity.LeadSnapshot `json:"leads"`
}

type CreatePipelineInput struct {
	Name   string       `json:"name"`
	Stages []StageInput `json:"stages"`
}

type updatePipelineRequest struct {
	Name string `json:"name"`
}

type addStageRequest struct {
	StageName string `json:"stageName"`
}

type moveLeadRequest struct {
	LeadEmail     string `json:"leadEmail"`
	FromStageName string `json:"fromStageName"`
	ToStageName   string `json:"toStageName"`
}
