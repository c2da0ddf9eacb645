package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"starchart/internal/auth"
	"starchart/internal/clock"
	"starchart/internal/ledger"
	"starchart/internal/model"
	"starchart/internal/notify"
	"starchart/internal/store"
	"starchart/internal/task"
)

type ProfileHandler struct {
	profiles *store.ProfileStore
	logs     *store.CompletionStore
	engine   *ledger.Engine
	issuer   *auth.TokenIssuer
	tokenTTL time.Duration
	clock    clock.Clock
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewProfileHandler(profiles *store.ProfileStore, logs *store.CompletionStore, engine *ledger.Engine, issuer *auth.TokenIssuer, tokenTTL time.Duration, clk clock.Clock, notifier *notify.Notifier, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles, logs: logs, engine: engine, issuer: issuer,
		tokenTTL: tokenTTL, clock: clk, notifier: notifier, logger: logger,
	}
}

type profileRequest struct {
	Name        string     `json:"name"`
	Role        model.Role `json:"role"`
	Color       string     `json:"color"`
	AvatarEmoji string     `json:"avatar_emoji"`
}

func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.ListByHousehold(1)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Role != model.RoleParent && req.Role != model.RoleChild {
		writeError(w, http.StatusBadRequest, "role must be parent or child")
		return
	}

	profile, err := h.profiles.Create(1, req.Name, req.Role, req.Color, req.AvatarEmoji)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("profile", "created", fmt.Sprintf("%d", profile.ID))
	writeJSON(w, http.StatusCreated, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	profile, err := h.profiles.Update(id, req.Name, req.Color, req.AvatarEmoji)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("profile", "updated", fmt.Sprintf("%d", id))
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.profiles.Delete(id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("profile", "deleted", fmt.Sprintf("%d", id))
	w.WriteHeader(http.StatusNoContent)
}

// Balance returns the profile's star balance and current streak.
func (h *ProfileHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	profile, err := h.profiles.GetByID(id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	dates, err := h.logs.CompletedDates(id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile_id": id,
		"stars":      profile.Stars,
		"streak":     task.Streak(dates, h.clock.Now()),
	})
}

// Leaderboard lists children by balance, then streak as the tiebreaker.
func (h *ProfileHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.ListByHousehold(1)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	type entry struct {
		Profile model.Profile `json:"profile"`
		Stars   int           `json:"stars"`
		Streak  int           `json:"streak"`
	}
	now := h.clock.Now()

	entries := []entry{}
	for _, p := range profiles {
		if p.Role != model.RoleChild {
			continue
		}
		dates, err := h.logs.CompletedDates(p.ID)
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		entries = append(entries, entry{Profile: p, Stars: p.Stars, Streak: task.Streak(dates, now)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Stars != entries[j].Stars {
			return entries[i].Stars > entries[j].Stars
		}
		return entries[i].Streak > entries[j].Streak
	})
	writeJSON(w, http.StatusOK, entries)
}

type pinRequest struct {
	PIN string `json:"pin"`
}

// SetPIN stores a new PIN hash for a parent profile. Changing an existing
// PIN goes through the parent-mode gate at the routing layer.
func (h *ProfileHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.PIN) < 4 {
		writeError(w, http.StatusBadRequest, "PIN must be at least 4 digits")
		return
	}

	profile, err := h.profiles.GetByID(id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if profile.Role != model.RoleParent {
		writeError(w, http.StatusBadRequest, "only parent profiles carry a PIN")
		return
	}
	if profile.HasPIN && !auth.IsParentMode(r.Context()) {
		writeError(w, http.StatusUnauthorized, "parent mode required to change an existing PIN")
		return
	}

	hash, err := auth.HashPIN(req.PIN)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.profiles.SetPIN(id, hash); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VerifyPIN checks the PIN and mints a parent-mode token.
func (h *ProfileHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	hash, err := h.profiles.PINHash(id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if hash == "" || !auth.VerifyPIN(hash, req.PIN) {
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}

	token, err := h.issuer.Mint(id, h.clock.Now())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(h.tokenTTL.Seconds()),
	})
}

type grantRequest struct {
	Stars  int    `json:"stars"`
	Reason string `json:"reason"`
}

// Grant is the parent's ad-hoc star award.
func (h *ProfileHandler) Grant(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		req.Reason = "Parent award"
	}

	if err := h.engine.GrantStars(r.Context(), 1, id, req.Stars, req.Reason); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}
