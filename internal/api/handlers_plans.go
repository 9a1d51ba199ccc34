package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/tripgenie/internal/export"
	"github.com/dgallion1/tripgenie/internal/pipeline"
	"github.com/dgallion1/tripgenie/internal/segment"
	"github.com/dgallion1/tripgenie/internal/store"
	"github.com/dgallion1/tripgenie/internal/travel"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	maxRequestBody = 64 << 10
)

type createPlanRequest struct {
	travel.Request
	Force bool `json:"force"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var body createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := body.Request.Validate(); err != nil {
		var verr *travel.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": verr.Message,
				"field": verr.Field,
			})
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(body.Request, body.Force)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"plan_id":  snap.PlanID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/plans/%s/status", snap.PlanID),
	})
}

func (s *Server) handlePlanStatus(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")

	job := s.orchestrator.JobForPlan(planID)
	if job == nil {
		job = s.orchestrator.GetJob(planID)
	}
	if job != nil {
		writeJSON(w, http.StatusOK, job.Snapshot())
		return
	}

	// The job may have expired while the plan lives on in the store.
	plan, err := s.plans.Get(r.Context(), planID)
	if err != nil {
		jsonError(w, "failed to load plan: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if plan == nil {
		jsonError(w, "plan not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"plan_id": plan.ID,
		"status":  pipeline.StatusCompleted,
		"progress": pipeline.Progress{
			Strategy: plan.Strategy,
			Sections: len(plan.Sections),
			Errors:   []string{},
		},
	})
}

// planSummary is the list view of a stored plan.
type planSummary struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Summary   string           `json:"summary"`
	Model     string           `json:"model"`
	Strategy  segment.Strategy `json:"strategy"`
	Sections  int              `json:"sections"`
	CreatedAt time.Time        `json:"created_at"`
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	plans, err := s.plans.List(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list plans: "+err.Error(), http.StatusInternalServerError)
		return
	}

	summaries := make([]planSummary, 0, len(plans))
	for _, p := range plans {
		summaries = append(summaries, planSummary{
			ID:        p.ID,
			Title:     p.Request.Title(),
			Summary:   p.Request.Summary(),
			Model:     p.Model,
			Strategy:  p.Strategy,
			Sections:  len(p.Sections),
			CreatedAt: p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": summaries})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.loadPlan(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	removed, err := s.plans.Delete(r.Context(), planID)
	if err != nil {
		jsonError(w, "failed to delete plan: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !removed {
		jsonError(w, "plan not found", http.StatusNotFound)
		return
	}
	s.log.Info("plan deleted", "plan_id", planID)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": planID})
}

func (s *Server) handleExportPlan(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	plan, ok := s.loadPlan(w, r)
	if !ok {
		return
	}

	// Render fully before writing headers so a failure can still be reported.
	var buf bytes.Buffer
	if err := export.Write(&buf, documentFor(plan), format); err != nil {
		jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="plan-%s%s"`, plan.ID, format.Extension()))
	w.Write(buf.Bytes())
}

// loadPlan fetches the plan named in the URL. It writes the error response
// itself: 409 while the plan's job is still running, 404 otherwise.
func (s *Server) loadPlan(w http.ResponseWriter, r *http.Request) (*store.Plan, bool) {
	planID := chi.URLParam(r, "planID")
	plan, err := s.plans.Get(r.Context(), planID)
	if err != nil {
		jsonError(w, "failed to load plan: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if plan != nil {
		return plan, true
	}

	if job := s.orchestrator.JobForPlan(planID); job != nil {
		snap := job.Snapshot()
		if !snap.Done() {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":  "plan is not ready",
				"status": snap.Status,
			})
			return nil, false
		}
		// Duplicate requests resolve to the plan they matched.
		if snap.PlanID != planID {
			plan, err := s.plans.Get(r.Context(), snap.PlanID)
			if err != nil {
				jsonError(w, "failed to load plan: "+err.Error(), http.StatusInternalServerError)
				return nil, false
			}
			if plan != nil {
				return plan, true
			}
		}
	}
	jsonError(w, "plan not found", http.StatusNotFound)
	return nil, false
}

func documentFor(p *store.Plan) export.Document {
	return export.Document{
		Title:    p.Request.Title(),
		Subtitle: p.Request.Summary(),
		Sections: p.Sections,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
