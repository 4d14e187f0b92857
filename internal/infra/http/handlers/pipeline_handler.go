package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

// PipelineHandler serves /pipelines. The {pipeline} segment is an id for the
// pipeline-level routes and a name for the stage and move routes.
type PipelineHandler struct {
	Service *usecase.PipelineService
	Log     *logrus.Entry
}

func NewPipelineHandler(svc *usecase.PipelineService, log *logrus.Entry) *PipelineHandler {
	return &PipelineHandler{Service: svc, Log: log}
}

func (h *PipelineHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{pipeline}", h.Get)
	r.Put("/{pipeline}", h.Rename)
	r.Delete("/{pipeline}", h.Delete)
	r.Post("/{pipeline}/stages", h.AddStage)
	r.Delete("/{pipeline}/stages/{stage}", h.DeleteStage)
	r.Post("/{pipeline}/stages/{stage}/leads", h.AddLead)
	r.Patch("/{pipeline}/move-lead", h.MoveLead)
}

func (h *PipelineHandler) List(w http.ResponseWriter, r *http.Request) {
	pipelines, err := h.Service.List(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		writeUsecaseError(w, h.Log, "list_pipelines", err)
		return
	}
	writeJSON(w, http.StatusOK, pipelines)
}

func (h *PipelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Get(r.Context(), middleware.OwnerID(r.Context()), pathParam(r, "pipeline"))
	if err != nil {
		writeUsecaseError(w, h.Log, "get_pipeline", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PipelineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreatePipelineInput
	if !decodeJSON(w, r, &input) {
		return
	}

	p, err := h.Service.Create(r.Context(), middleware.OwnerID(r.Context()), input)
	if err != nil {
		writeUsecaseError(w, h.Log, "create_pipeline", err)
		return
	}
	middleware.RecordPipelineCommand("create_pipeline", "OK")
	writeJSON(w, http.StatusCreated, p)
}

func (h *PipelineHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdatePipelineInput
	if !decodeJSON(w, r, &input) {
		return
	}

	p, err := h.Service.Rename(r.Context(), middleware.OwnerID(r.Context()), pathParam(r, "pipeline"), input)
	if err != nil {
		writeUsecaseError(w, h.Log, "update_pipeline", err)
		return
	}
	middleware.RecordPipelineCommand("update_pipeline", "OK")
	writeJSON(w, http.StatusOK, p)
}

func (h *PipelineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Delete(r.Context(), middleware.OwnerID(r.Context()), pathParam(r, "pipeline"))
	if err != nil {
		writeUsecaseError(w, h.Log, "delete_pipeline", err)
		return
	}
	middleware.RecordPipelineCommand("delete_pipeline", "OK")
	writeJSON(w, http.StatusOK, res)
}

func (h *PipelineHandler) AddStage(w http.ResponseWriter, r *http.Request) {
	var input usecase.AddStageInput
	if !decodeJSON(w, r, &input) {
		return
	}

	p, err := h.Service.AddStage(r.Context(), middleware.OwnerID(r.Context()), pathParam(r, "pipeline"), input)
	if err != nil {
		writeUsecaseError(w, h.Log, "add_stage", err)
		return
	}
	middleware.RecordPipelineCommand("add_stage", "OK")
	writeJSON(w, http.StatusCreated, p)
}

func (h *PipelineHandler) DeleteStage(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.DeleteStage(r.Context(), middleware.OwnerID(r.Context()),
		pathParam(r, "pipeline"), pathParam(r, "stage"))
	if err != nil {
		writeUsecaseError(w, h.Log, "delete_stage", err)
		return
	}
	middleware.RecordPipelineCommand("delete_stage", "OK")
	writeJSON(w, http.StatusOK, p)
}

func (h *PipelineHandler) AddLead(w http.ResponseWriter, r *http.Request) {
	var lead entity.LeadSnapshot
	if !decodeJSON(w, r, &lead) {
		return
	}

	p, err := h.Service.AddLeadToStage(r.Context(), middleware.OwnerID(r.Context()),
		pathParam(r, "pipeline"), pathParam(r, "stage"), lead)
	if err != nil {
		writeUsecaseError(w, h.Log, "add_lead", err)
		return
	}
	middleware.RecordPipelineCommand("add_lead", "OK")
	writeJSON(w, http.StatusCreated, p)
}

func (h *PipelineHandler) MoveLead(w http.ResponseWriter, r *http.Request) {
	var input usecase.MoveLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}

	p, err := h.Service.MoveLead(r.Context(), middleware.OwnerID(r.Context()), pathParam(r, "pipeline"), input)
	if err != nil {
		writeUsecaseError(w, h.Log, "move_lead", err)
		return
	}
	middleware.RecordPipelineCommand("move_lead", "OK")
	writeJSON(w, http.StatusOK, p)
}

// pathParam decodes a name segment. chi matches on RawPath when the request
// carried escapes such as %2F, and then hands back the still-encoded value.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}
