package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/xavierca1/ligue-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

var statusByCode = map[string]int{
	usecase.CodeValidation:         http.StatusBadRequest,
	usecase.CodePipelineNotFound:   http.StatusNotFound,
	usecase.CodeStageNotFound:      http.StatusNotFound,
	usecase.CodeLeadNotFound:       http.StatusNotFound,
	usecase.CodePipelineExists:     http.StatusConflict,
	usecase.CodeStageExists:        http.StatusConflict,
	usecase.CodeLeadInStage:        http.StatusConflict,
	usecase.CodeLeadEmailAmbiguous: http.StatusConflict,
}

// writeUsecaseError maps the usecase error taxonomy onto HTTP. Technical
// errors are logged and hidden behind a generic message.
func writeUsecaseError(w http.ResponseWriter, log *logrus.Entry, op string, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		status, ok := statusByCode[de.Code]
		if !ok {
			status = http.StatusUnprocessableEntity
		}
		middleware.RecordPipelineCommand(op, de.Code)
		writeErrorResponse(w, status, de.Code, de.Message)
		return
	}

	log.WithError(err).WithField("op", op).Error("request failed")
	middleware.RecordPipelineCommand(op, "TECHNICAL_ERROR")
	writeErrorResponse(w, http.StatusInternalServerError, usecase.CodeDatabase, "internal error, please retry")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return false
	}
	return true
}
