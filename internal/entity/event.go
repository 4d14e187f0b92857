package entity

import "time"

const (
	EventPipelineCreated = "pipeline.created"
	EventPipelineRenamed = "pipeline.renamed"
	EventPipelineDeleted = "pipeline.deleted"
	EventStageAdded      = "stage.added"
	EventStageDeleted    = "stage.deleted"
	EventLeadAdded       = "lead.added"
	EventLeadMoved       = "lead.moved"
)

type PipelineEvent struct {
	Type         string    `json:"type"`
	OwnerID      string    `json:"ownerId"`
	PipelineID   string    `json:"pipelineId"`
	PipelineName string    `json:"pipelineName"`
	Stage        string    `json:"stage,omitempty"`
	FromStage    string    `json:"fromStage,omitempty"`
	ToStage      string    `json:"toStage,omitempty"`
	LeadEmail    string    `json:"leadEmail,omitempty"`
	LeadName     string    `json:"leadName,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}
