package handler

import (
	"log/slog"
	"net/http"

	"starchart/internal/model"
	"starchart/internal/notify"
	"starchart/internal/store"
)

type HistoryHandler struct {
	logs     *store.CompletionStore
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewHistoryHandler(logs *store.CompletionStore, notifier *notify.Notifier, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{logs: logs, notifier: notifier, logger: logger}
}

const defaultHistoryLimit = 50

// List returns recent completion logs, filtered by profile or by day.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if date := r.URL.Query().Get("date"); date != "" {
		logs, err := h.logs.ListByHouseholdDate(1, date)
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		writeLogs(w, logs)
		return
	}

	profileID, ok := queryInt64(r, "profile_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "profile_id or date is required")
		return
	}

	limit := defaultHistoryLimit
	if n, ok := queryInt64(r, "limit"); ok && n > 0 && n <= 500 {
		limit = int(n)
	}

	logs, err := h.logs.ListByProfile(profileID, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeLogs(w, logs)
}

// Unseen lists completions no parent has reviewed yet.
func (h *HistoryHandler) Unseen(w http.ResponseWriter, r *http.Request) {
	logs, err := h.logs.ListUnseen(1)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeLogs(w, logs)
}

func (h *HistoryHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.logs.MarkSeen(id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("history", "seen", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeLogs(w http.ResponseWriter, logs []model.CompletionLog) {
	if logs == nil {
		logs = []model.CompletionLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
