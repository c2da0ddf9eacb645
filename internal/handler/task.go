package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"starchart/internal/clock"
	"starchart/internal/ledger"
	"starchart/internal/model"
	"starchart/internal/notify"
	"starchart/internal/store"
	"starchart/internal/sweeper"
	"starchart/internal/task"
)

type TaskHandler struct {
	tasks    *store.TaskStore
	logs     *store.CompletionStore
	engine   *ledger.Engine
	sweep    *sweeper.Sweeper
	clock    clock.Clock
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewTaskHandler(tasks *store.TaskStore, logs *store.CompletionStore, engine *ledger.Engine, sweep *sweeper.Sweeper, clk clock.Clock, notifier *notify.Notifier, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks: tasks, logs: logs, engine: engine, sweep: sweep,
		clock: clk, notifier: notifier, logger: logger,
	}
}

type taskStepInput struct {
	Title string `json:"title"`
	Stars int    `json:"stars"`
}

type taskRequest struct {
	Title           string           `json:"title"`
	Icon            string           `json:"icon"`
	Recurrence      model.Recurrence `json:"recurrence"`
	TimeOfDay       string           `json:"time_of_day"`
	DaysOfWeek      string           `json:"days_of_week"`
	Date            string           `json:"date"`
	FlexMinutes     int              `json:"flex_minutes"`
	ExpiryRule      model.ExpiryRule `json:"expiry_rule"`
	ExpiryOffsetMin int              `json:"expiry_offset_min"`
	Steps           []taskStepInput  `json:"steps"`
	AssigneeIDs     []int64          `json:"assignee_ids"`
}

func (req *taskRequest) validate() (model.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return model.Task{}, fmt.Errorf("title is required")
	}
	if req.Recurrence != model.RecurrenceRecurring && req.Recurrence != model.RecurrenceOneTime {
		return model.Task{}, fmt.Errorf("recurrence must be recurring or one_time")
	}
	if req.Recurrence == model.RecurrenceOneTime && req.Date == "" {
		return model.Task{}, fmt.Errorf("one-time tasks need a date")
	}
	if len(req.Steps) == 0 {
		return model.Task{}, fmt.Errorf("at least one step is required")
	}

	t := model.Task{
		HouseholdID:     1,
		Title:           req.Title,
		Icon:            req.Icon,
		Recurrence:      req.Recurrence,
		TimeOfDay:       req.TimeOfDay,
		DaysOfWeek:      req.DaysOfWeek,
		Date:            req.Date,
		FlexMinutes:     req.FlexMinutes,
		ExpiryRule:      req.ExpiryRule,
		ExpiryOffsetMin: req.ExpiryOffsetMin,
		AssigneeIDs:     req.AssigneeIDs,
	}
	for _, s := range req.Steps {
		if strings.TrimSpace(s.Title) == "" {
			return model.Task{}, fmt.Errorf("step titles are required")
		}
		if s.Stars < 0 {
			return model.Task{}, fmt.Errorf("step stars must be >= 0")
		}
		t.Steps = append(t.Steps, model.TaskStep{Title: strings.TrimSpace(s.Title), Stars: s.Stars})
	}
	return t, nil
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	t, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.tasks.Create(t)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("task", "created", fmt.Sprintf("%d", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		tasks []model.Task
		err   error
	)
	if profileID, ok := queryInt64(r, "profile_id"); ok {
		tasks, err = h.tasks.ListByAssignee(profileID)
	} else {
		tasks, err = h.tasks.ListByHousehold(1)
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	t, err := h.tasks.GetByID(id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	t, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.tasks.Update(id, t)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("task", "updated", fmt.Sprintf("%d", id))
	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.tasks.Delete(id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("task", "deleted", fmt.Sprintf("%d", id))
	w.WriteHeader(http.StatusNoContent)
}

// todayTask is a task occurrence with its resolved lifecycle status.
type todayTask struct {
	Task   model.Task  `json:"task"`
	Status task.Status `json:"status"`
	Stars  int         `json:"stars"`
}

// Today resolves the profile's occurrences for the current day. Status is
// derived on the fly; only completions and sweeper misses are persisted.
func (h *TaskHandler) Today(w http.ResponseWriter, r *http.Request) {
	profileID, ok := queryInt64(r, "profile_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "profile_id is required")
		return
	}

	assigned, err := h.tasks.ListByAssignee(profileID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	now := h.clock.Now()
	date := now.Format(model.DateLayout)

	view := []todayTask{}
	for _, t := range assigned {
		if !task.DueOn(t, now) {
			continue
		}
		hasCompleted, hasMissed, err := h.logs.LogState(model.TaskActivityID(t.ID), profileID, date)
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		view = append(view, todayTask{
			Task:   t,
			Status: task.Resolve(t, now, hasCompleted, hasMissed),
			Stars:  t.TotalStars(),
		})
	}
	writeJSON(w, http.StatusOK, view)
}

type completeRequest struct {
	ProfileID int64 `json:"profile_id"`
}

// Complete awards the task through the ledger. Safe to retry.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	awarded, err := h.engine.CompleteTask(r.Context(), id, req.ProfileID, h.clock.Now())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stars_awarded": awarded})
}

// Sweep triggers an immediate expiration pass instead of waiting for the
// ticker.
func (h *TaskHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	swept, err := h.sweep.SweepExpired(r.Context(), 1, h.clock.Now())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if swept == nil {
		swept = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"missed": swept})
}
