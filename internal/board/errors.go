package board

import (
	"context"
	"errors"

	"github.com/xavierca1/ligue-pipeline/internal/infra/integration/crmapi"
)

var (
	ErrBusy               = errors.New("this action is already in progress")
	ErrDeclined           = errors.New("action cancelled")
	ErrLeadAlreadyInStage = errors.New("lead is already in this stage")
	ErrLeadNotInStage     = errors.New("lead is not in this stage")
	ErrCrossPipelineMove  = errors.New("leads can only be moved between stages of the same pipeline")
	ErrUnknownPipeline    = errors.New("pipeline not found")
	ErrUnknownStage       = errors.New("stage not found")
	ErrDragActive         = errors.New("another drag is already in progress")
	ErrNoDrag             = errors.New("no drag in progress")

	// ErrSavedNotReloaded wraps a refetch failure after the server accepted
	// the command. Retrying the command would repeat it.
	ErrSavedNotReloaded = errors.New("saved, but reloading the board failed")
)

const (
	msgUnreachable = "Could not reach the server. Please try again."
	msgNotReloaded = "Saved, but the board could not be reloaded. Refresh to see the latest state."
	GenericMessage = "Something went wrong. Please try again."
)

// UserMessage turns any command error into the text shown to the user: the
// server's own message when it sent one, local validation text, or a generic
// fallback for transport failures.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrSavedNotReloaded) {
		return msgNotReloaded
	}

	var apiErr *crmapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	var vErr *crmapi.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error()
	}

	for _, known := range []error{
		ErrBusy, ErrDeclined, ErrLeadAlreadyInStage, ErrLeadNotInStage, ErrCrossPipelineMove,
		ErrUnknownPipeline, ErrUnknownStage, ErrDragActive, ErrNoDrag,
		crmapi.ErrUnknownPipeline, crmapi.ErrUnknownStage,
	} {
		if errors.Is(err, known) {
			return err.Error()
		}
	}

	var tErr *crmapi.TransportError
	if errors.As(err, &tErr) || errors.Is(err, context.DeadlineExceeded) {
		return msgUnreachable
	}
	return GenericMessage
}
