package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"starchart/internal/ledger"
	"starchart/internal/model"
	"starchart/internal/notify"
	"starchart/internal/store"
)

type GiftHandler struct {
	gifts    *store.GiftStore
	engine   *ledger.Engine
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewGiftHandler(gifts *store.GiftStore, engine *ledger.Engine, notifier *notify.Notifier, logger *slog.Logger) *GiftHandler {
	return &GiftHandler{gifts: gifts, engine: engine, notifier: notifier, logger: logger}
}

type giftRequest struct {
	ProfileID int64  `json:"profile_id"`
	Title     string `json:"title"`
	Stars     int    `json:"stars"`
}

func (h *GiftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req giftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Stars <= 0 {
		writeError(w, http.StatusBadRequest, "stars must be > 0")
		return
	}
	if req.ProfileID <= 0 {
		writeError(w, http.StatusBadRequest, "profile_id is required")
		return
	}

	gift, err := h.gifts.Create(1, req.ProfileID, req.Title, req.Stars)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("gift", "created", gift.ID)
	writeJSON(w, http.StatusCreated, gift)
}

func (h *GiftHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	profileID, ok := queryInt64(r, "profile_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "profile_id is required")
		return
	}

	gifts, err := h.gifts.ListPendingByProfile(profileID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if gifts == nil {
		gifts = []model.Gift{}
	}
	writeJSON(w, http.StatusOK, gifts)
}

func (h *GiftHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.engine.ClaimGift(r.Context(), id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	gift, err := h.gifts.GetByID(id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, gift)
}

// Delete retracts a still-pending gift.
func (h *GiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.gifts.Delete(id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("gift", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
