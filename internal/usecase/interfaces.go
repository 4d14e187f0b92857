package usecase

import (
	"context"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

type CreateStageInput struct {
	Name  string                `json:"name"`
	Leads []entity.LeadSnapshot `json:"leads"`
}

type CreatePipelineInput struct {
	Name   string             `json:"name"`
	Stages []CreateStageInput `json:"stages"`
}

type UpdatePipelineInput struct {
	Name string `json:"name"`
}

type AddStageInput struct {
	StageName string `json:"stageName"`
}

type MoveLeadInput struct {
	LeadEmail     string `json:"leadEmail"`
	FromStageName string `json:"fromStageName"`
	ToStageName   string `json:"toStageName"`
}

type CreateLeadInput struct {
	Name    string            `json:"name"`
	Email   string            `json:"email"`
	Phone   string            `json:"phone,omitempty"`
	Company string            `json:"company,omitempty"`
	Info    map[string]string `json:"info,omitempty"`
}

// EventPublisher is satisfied by the RabbitMQ producer. A nil publisher
// disables events.
type EventPublisher interface {
	PublishPipelineEvent(ctx context.Context, event entity.PipelineEvent) error
}
