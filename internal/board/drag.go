package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

// Phase is the drag session's state. It is a single tagged value so a
// session cannot be moving and idle at once.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseConfirming
	PhaseMoving
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	case PhaseConfirming:
		return "confirming"
	case PhaseMoving:
		return "moving"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type DropOutcome int

const (
	DropNoop DropOutcome = iota
	DropMoved
	DropDeclined
	DropRejected
	DropFailed
)

func (o DropOutcome) String() string {
	switch o {
	case DropNoop:
		return "noop"
	case DropMoved:
		return "moved"
	case DropDeclined:
		return "declined"
	case DropRejected:
		return "rejected"
	case DropFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// DragPayload is the transfer data carried across the gesture.
type DragPayload struct {
	Pipeline  string `json:"pipeline"`
	Stage     string `json:"stage"`
	LeadID    string `json:"leadId"`
	LeadName  string `json:"leadName"`
	LeadEmail string `json:"leadEmail"`
}

func (p DragPayload) Encode() string {
	data, _ := json.Marshal(p)
	return string(data)
}

func DecodePayload(data string) (DragPayload, error) {
	var p DragPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return DragPayload{}, fmt.Errorf("invalid drag payload: %w", err)
	}
	if p.Pipeline == "" || p.Stage == "" || p.LeadEmail == "" {
		return DragPayload{}, fmt.Errorf("invalid drag payload: missing pipeline, stage or lead email")
	}
	return p, nil
}

// Session is a snapshot of the drag state. Hover is the stage the pointer is
// over, kept only for highlighting.
type Session struct {
	Phase   Phase
	Payload DragPayload
	Hover   string
}

// DragController owns the board's one drag session.
type DragController struct {
	board *Board

	mu      sync.Mutex
	session Session
}

func (d *DragController) Session() Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// Start begins a drag of lead out of the named stage and returns the
// serialised payload.
func (d *DragController) Start(pipelineName, stageName string, lead entity.LeadSnapshot) (string, error) {
	_, st, err := d.board.resolve(pipelineName, stageName)
	if err != nil {
		return "", err
	}
	if !st.HasLead(lead.ID) {
		return "", fmt.Errorf("%w: %s", ErrLeadNotInStage, lead.Email)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session.Phase != PhaseIdle {
		return "", ErrDragActive
	}

	d.session = Session{
		Phase: PhaseDragging,
		Payload: DragPayload{
			Pipeline:  pipelineName,
			Stage:     stageName,
			LeadID:    lead.ID,
			LeadName:  lead.Name,
			LeadEmail: lead.Email,
		},
	}
	return d.session.Payload.Encode(), nil
}

func (d *DragController) Enter(stageName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session.Phase == PhaseDragging {
		d.session.Hover = stageName
	}
}

func (d *DragController) Leave(stageName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session.Hover == stageName {
		d.session.Hover = ""
	}
}

// Cancel ends a drag that was released outside any drop zone. A drop that
// is already being resolved is left alone.
func (d *DragController) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session.Phase != PhaseDragging {
		return false
	}
	d.session = Session{}
	return true
}

func (d *DragController) setPhase(p Phase) {
	d.mu.Lock()
	d.session.Phase = p
	d.mu.Unlock()
}

func (d *DragController) reset() {
	d.mu.Lock()
	d.session = Session{}
	d.mu.Unlock()
}

// Drop resolves a drop of data onto targetStage of targetPipeline. Once a
// drop is accepted the session returns to idle whatever the outcome. A drop
// that arrives while another is confirming or moving fails with ErrBusy and
// does not disturb it. A move the server accepted but the board could not
// reload reports DropMoved along with ErrSavedNotReloaded.
func (d *DragController) Drop(ctx context.Context, targetPipeline, targetStage, data string) (DropOutcome, error) {
	d.mu.Lock()
	switch d.session.Phase {
	case PhaseIdle:
		d.mu.Unlock()
		return DropRejected, ErrNoDrag
	case PhaseConfirming, PhaseMoving:
		d.mu.Unlock()
		return DropRejected, ErrBusy
	}
	payload := d.session.Payload
	d.session.Phase = PhaseConfirming
	d.session.Hover = ""
	d.mu.Unlock()
	defer d.reset()

	if data != "" {
		decoded, err := DecodePayload(data)
		if err != nil {
			return DropRejected, d.board.surface("drop", err)
		}
		payload = decoded
	}

	if targetPipeline != payload.Pipeline {
		return DropRejected, d.board.surface("drop", ErrCrossPipelineMove)
	}
	if targetStage == payload.Stage {
		return DropNoop, nil
	}

	p, _, err := d.board.resolve(payload.Pipeline, payload.Stage)
	if err != nil {
		return DropRejected, d.board.surface("drop", err)
	}
	if _, ok := p.Stage(targetStage); !ok {
		return DropRejected, d.board.surface("drop", fmt.Errorf("%w: %q in pipeline %q", ErrUnknownStage, targetStage, p.Name))
	}

	who := payload.LeadName
	if who == "" {
		who = payload.LeadEmail
	}
	prompt := fmt.Sprintf("Move %s from %q to %q?", who, payload.Stage, targetStage)
	if !d.board.confirm.Confirm(ctx, prompt) {
		return DropDeclined, nil
	}

	d.setPhase(PhaseMoving)
	if err := d.board.moveLead(ctx, payload.Pipeline, payload.LeadEmail, payload.Stage, targetStage); err != nil {
		if errors.Is(err, ErrSavedNotReloaded) {
			return DropMoved, d.board.surface("drop", err)
		}
		return DropFailed, d.board.surface("drop", err)
	}
	return DropMoved, nil
}
