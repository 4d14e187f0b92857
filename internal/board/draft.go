package board

import (
	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/integration/crmapi"
)

// DefaultStageSlots is how many empty stage fields a fresh draft offers.
const DefaultStageSlots = 4

// Draft is the pipeline creation form. The board never mutates it on a
// failed submit so the user can correct and resubmit.
type Draft struct {
	Name   string
	Stages []DraftStage
}

type DraftStage struct {
	Name  string
	Leads []entity.LeadSnapshot
}

func NewDraft(slots int) *Draft {
	return &Draft{Stages: make([]DraftStage, slots)}
}

func (d *Draft) AddStage(name string) int {
	d.Stages = append(d.Stages, DraftStage{Name: name})
	return len(d.Stages) - 1
}

func (d *Draft) SetStageName(i int, name string) {
	if i >= 0 && i < len(d.Stages) {
		d.Stages[i].Name = name
	}
}

func (d *Draft) RemoveStage(i int) {
	if i >= 0 && i < len(d.Stages) {
		d.Stages = append(d.Stages[:i:i], d.Stages[i+1:]...)
	}
}

// AttachLead adds a lead to stage i; a lead already attached to that stage
// is rejected.
func (d *Draft) AttachLead(i int, lead entity.Lead) error {
	if i < 0 || i >= len(d.Stages) {
		return ErrUnknownStage
	}
	for _, l := range d.Stages[i].Leads {
		if l.ID == lead.ID {
			return ErrLeadAlreadyInStage
		}
	}
	d.Stages[i].Leads = append(d.Stages[i].Leads, lead.Snapshot())
	return nil
}

func (d *Draft) LeadCount() int {
	n := 0
	for _, s := range d.Stages {
		n += len(s.Leads)
	}
	return n
}

func (d *Draft) Reset(slots int) {
	d.Name = ""
	d.Stages = make([]DraftStage, slots)
}

func (d *Draft) Input() crmapi.CreatePipelineInput {
	in := crmapi.CreatePipelineInput{
		Name:   d.Name,
		Stages: make([]crmapi.StageInput, len(d.Stages)),
	}
	for i, s := range d.Stages {
		in.Stages[i] = crmapi.StageInput{
			Name:  s.Name,
			Leads: append([]entity.LeadSnapshot{}, s.Leads...),
		}
	}
	return in
}
