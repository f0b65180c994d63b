package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moltenlabs/councilflow/council"
	"github.com/moltenlabs/councilflow/format"
	"github.com/moltenlabs/councilflow/internal/metrics"
	"github.com/moltenlabs/councilflow/trigger"
	"github.com/moltenlabs/councilflow/types"
)

// =============================================================================
// 🏛️ Council handler
// =============================================================================

// CouncilHandler exposes the council lifecycle over HTTP: creation,
// confirmation, progressive stage advancement, rating collection, and
// verdict retrieval, plus the free-text trigger endpoint.
type CouncilHandler struct {
	engine  *council.Engine
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewCouncilHandler creates the council handler.
func NewCouncilHandler(engine *council.Engine, collector *metrics.Collector, logger *zap.Logger) *CouncilHandler {
	return &CouncilHandler{
		engine:  engine,
		metrics: collector,
		logger:  logger.With(zap.String("component", "council_handler")),
	}
}

// Register mounts the council routes on the mux.
func (h *CouncilHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/councils", h.HandleCouncils)
	mux.HandleFunc("/api/v1/councils/", h.HandleCouncilByID)
	mux.HandleFunc("/api/v1/triggers", h.HandleTrigger)
}

// createRequest is the body of POST /api/v1/councils.
type createRequest struct {
	Crypto string `json:"crypto"`
}

// confirmResponse reports the outcome of a confirm operation.
type confirmResponse struct {
	CouncilID string `json:"council_id"`
	Confirmed bool   `json:"confirmed"`
}

// verdictResponse bundles the structured report with its rendered text.
type verdictResponse struct {
	Report *types.VerdictReport `json:"report"`
	Text   string               `json:"text"`
	Chunks []string             `json:"chunks,omitempty"`
}

// HandleCouncils handles POST /api/v1/councils (create) and
// GET /api/v1/councils?status=pending (list).
func (h *CouncilHandler) HandleCouncils(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createRequest
		if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
			return
		}
		c, err := h.engine.Rate(r.Context(), req.Crypto)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		WriteJSON(w, http.StatusCreated, Response{Success: true, Data: c, Timestamp: time.Now()})

	case http.MethodGet:
		status := types.CouncilStatus(r.URL.Query().Get("status"))
		if status == "" {
			WriteError(w, types.NewError(types.ErrInvalidRequest, "status query parameter is required"), h.logger)
			return
		}
		list, err := h.engine.ListByStatus(r.Context(), status)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		WriteSuccess(w, list)

	default:
		RequireMethod(w, r, http.MethodPost, h.logger)
	}
}

// HandleCouncilByID routes /api/v1/councils/{id}[/{action}].
//
//	GET  /api/v1/councils/{id}          — fetch the council
//	POST /api/v1/councils/{id}/confirm  — pending → active
//	POST /api/v1/councils/{id}/next     — progressive stage advance
//	POST /api/v1/councils/{id}/ratings  — collect ratings, complete
//	GET  /api/v1/councils/{id}/verdict  — rendered verdict (paginated=1 for chunks)
func (h *CouncilHandler) HandleCouncilByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/councils/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "council id is required"), h.logger)
		return
	}

	switch action {
	case "":
		if !RequireMethod(w, r, http.MethodGet, h.logger) {
			return
		}
		c, err := h.engine.Get(r.Context(), id)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		WriteSuccess(w, c)

	case "confirm":
		if !RequireMethod(w, r, http.MethodPost, h.logger) {
			return
		}
		ok := h.engine.Confirm(r.Context(), id)
		WriteSuccess(w, confirmResponse{CouncilID: id, Confirmed: ok})

	case "next":
		if !RequireMethod(w, r, http.MethodPost, h.logger) {
			return
		}
		advance, err := h.engine.Next(r.Context(), id)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		WriteSuccess(w, map[string]interface{}{
			"advance": advance,
			"text":    format.StageAdvance(advance),
		})

	case "ratings":
		if !RequireMethod(w, r, http.MethodPost, h.logger) {
			return
		}
		report, err := h.engine.CollectRatings(r.Context(), id)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		WriteSuccess(w, h.verdictPayload(report, r))

	case "verdict":
		if !RequireMethod(w, r, http.MethodGet, h.logger) {
			return
		}
		report, err := h.engine.Verdict(r.Context(), id)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		WriteSuccess(w, h.verdictPayload(report, r))

	default:
		WriteError(w, types.NewError(types.ErrNotFound, "unknown action "+action), h.logger)
	}
}

// verdictPayload renders a report, optionally paginated.
func (h *CouncilHandler) verdictPayload(report *types.VerdictReport, r *http.Request) verdictResponse {
	resp := verdictResponse{
		Report: report,
		Text:   format.Verdict(report),
	}
	if r.URL.Query().Get("paginated") == "1" {
		resp.Chunks = format.PaginatedVerdict(report, format.DefaultChunkSize)
	}
	return resp
}

// triggerRequest is the body of POST /api/v1/triggers: raw chat text,
// optionally pinned to a council id.
type triggerRequest struct {
	Text      string `json:"text"`
	CouncilID string `json:"council_id,omitempty"`
}

// triggerResponse reports what the trigger resolved to and its result.
type triggerResponse struct {
	Intent trigger.Intent `json:"intent"`
	Result interface{}    `json:"result,omitempty"`
	Text   string         `json:"text,omitempty"`
}

// HandleTrigger accepts free chat text, resolves the intent, and drives
// the engine. When no council id is supplied, confirm/next/verdict fall
// back to the oldest council in the relevant state — the degraded
// addressing mode of the chat layer, ambiguous under concurrent sessions.
func (h *CouncilHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost, h.logger) {
		return
	}
	var req triggerRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	intent := trigger.Detect(req.Text)
	if h.metrics != nil {
		h.metrics.RecordTrigger(string(intent.Kind))
	}
	resp := triggerResponse{Intent: intent}

	switch intent.Kind {
	case trigger.KindRate:
		c, err := h.engine.Rate(r.Context(), intent.Symbol)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		resp.Result = c
		resp.Text = "Council assembled for " + c.Crypto + ". Confirm to begin the analysis."

	case trigger.KindConfirm:
		id, err := h.resolveID(r, req.CouncilID, types.StatusPending)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		ok := h.engine.Confirm(r.Context(), id)
		resp.Result = confirmResponse{CouncilID: id, Confirmed: ok}
		if ok {
			resp.Text = "The council is now in session."
		} else {
			resp.Text = "Nothing to confirm."
		}

	case trigger.KindNext:
		id, err := h.resolveID(r, req.CouncilID, types.StatusActive)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		advance, err := h.engine.Next(r.Context(), id)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		resp.Result = advance
		resp.Text = format.StageAdvance(advance)

	case trigger.KindVerdict:
		id, err := h.resolveID(r, req.CouncilID, types.StatusComplete)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		report, err := h.engine.Verdict(r.Context(), id)
		if err != nil {
			WriteAnyError(w, err, h.logger)
			return
		}
		resp.Result = report
		resp.Text = format.Verdict(report)

	default:
		resp.Text = "No council intent detected."
	}

	WriteSuccess(w, resp)
}

// resolveID returns the explicit council id, or falls back to the oldest
// council in the given state.
func (h *CouncilHandler) resolveID(r *http.Request, explicit string, status types.CouncilStatus) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	c, err := h.engine.FirstByStatus(r.Context(), status)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}
