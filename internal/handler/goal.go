package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"starchart/internal/goal"
	"starchart/internal/model"
	"starchart/internal/notify"
	"starchart/internal/store"
)

type GoalHandler struct {
	controller *goal.Controller
	goals      *store.GoalStore
	notifier   *notify.Notifier
	logger     *slog.Logger
}

func NewGoalHandler(controller *goal.Controller, goals *store.GoalStore, notifier *notify.Notifier, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{controller: controller, goals: goals, notifier: notifier, logger: logger}
}

type goalRequest struct {
	ProfileID int64                      `json:"profile_id"`
	Type      model.GoalType             `json:"type"`
	Title     string                     `json:"title"`
	Icon      string                     `json:"icon"`
	Target    int                        `json:"target"`
	Unit      string                     `json:"unit"`
	Stars     int                        `json:"stars"`
	DueDate   string                     `json:"due_date"`
	Items     []model.ChecklistItemInput `json:"items"`
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	g, err := h.controller.Create(model.Goal{
		HouseholdID: 1,
		ProfileID:   req.ProfileID,
		Type:        req.Type,
		Title:       strings.TrimSpace(req.Title),
		Icon:        req.Icon,
		Target:      req.Target,
		Unit:        req.Unit,
		Stars:       req.Stars,
		DueDate:     req.DueDate,
	}, req.Items)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("goal", "created", fmt.Sprintf("%d", g.ID))
	writeJSON(w, http.StatusCreated, g)
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	profileID, ok := queryInt64(r, "profile_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "profile_id is required")
		return
	}

	goals, err := h.goals.ListByProfile(profileID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

// PendingApproval lists the household's approval queue for parents.
func (h *GoalHandler) PendingApproval(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goals.ListPendingApproval(1)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	g, err := h.controller.Get(id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type progressRequest struct {
	Delta *int `json:"delta"`
	Value *int `json:"value"`
}

// Progress accepts either a delta (counters) or an absolute value (sliders,
// timers).
func (h *GoalHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var g *model.Goal
	switch {
	case req.Delta != nil:
		g, err = h.controller.Increment(id, *req.Delta)
	case req.Value != nil:
		g, err = h.controller.SetProgress(id, *req.Value)
	default:
		writeError(w, http.StatusBadRequest, "delta or value is required")
		return
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("goal", "updated", fmt.Sprintf("%d", id))
	writeJSON(w, http.StatusOK, g)
}

type toggleItemRequest struct {
	ItemID    int64 `json:"item_id"`
	Completed bool  `json:"completed"`
}

func (h *GoalHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req toggleItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	g, err := h.controller.ToggleItem(id, req.ItemID, req.Completed)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("goal", "updated", fmt.Sprintf("%d", id))
	writeJSON(w, http.StatusOK, g)
}

func (h *GoalHandler) RequestCompletion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	g, err := h.controller.RequestCompletion(id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("goal", "pending", fmt.Sprintf("%d", id))
	writeJSON(w, http.StatusOK, g)
}

func (h *GoalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	g, err := h.controller.Cancel(id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("goal", "cancelled", fmt.Sprintf("%d", id))
	writeJSON(w, http.StatusOK, g)
}

type approveGoalRequest struct {
	Stars *int `json:"stars"`
}

func (h *GoalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req approveGoalRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	g, err := h.controller.Approve(r.Context(), id, req.Stars)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *GoalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	g, err := h.controller.Reject(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.goals.Delete(id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("goal", "deleted", fmt.Sprintf("%d", id))
	w.WriteHeader(http.StatusNoContent)
}
