package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"starchart/internal/ledger"
	"starchart/internal/model"
	"starchart/internal/notify"
	"starchart/internal/store"
)

type RewardHandler struct {
	rewards  *store.RewardStore
	engine   *ledger.Engine
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewRewardHandler(rewards *store.RewardStore, engine *ledger.Engine, notifier *notify.Notifier, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rewards, engine: engine, notifier: notifier, logger: logger}
}

type rewardRequest struct {
	Title            string `json:"title"`
	Icon             string `json:"icon"`
	Cost             int    `json:"cost"`
	RequiresApproval bool   `json:"requires_approval"`
	Active           bool   `json:"active"`
}

func (req *rewardRequest) validate() error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return fmt.Errorf("title is required")
	}
	if req.Cost < 0 {
		return fmt.Errorf("cost must be >= 0")
	}
	return nil
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reward, err := h.rewards.Create(1, req.Title, req.Icon, req.Cost, req.RequiresApproval, req.Active)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("reward", "created", fmt.Sprintf("%d", reward.ID))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.ListByHousehold(1)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reward, err := h.rewards.Update(id, req.Title, req.Icon, req.Cost, req.RequiresApproval, req.Active)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("reward", "updated", fmt.Sprintf("%d", id))
	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.rewards.Delete(id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.notifier.EntityChanged("reward", "deleted", fmt.Sprintf("%d", id))
	w.WriteHeader(http.StatusNoContent)
}

type purchaseRequest struct {
	ProfileID int64 `json:"profile_id"`
}

// Purchase starts a claim for the reward: a pending request when the reward
// needs approval, an immediate debit otherwise.
func (h *RewardHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	rewardID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	reward, err := h.rewards.GetByID(rewardID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}

	var request *model.PurchaseRequest
	if reward.RequiresApproval {
		request, err = h.engine.RequestPurchase(r.Context(), req.ProfileID, rewardID)
	} else {
		request, err = h.engine.ClaimInstant(r.Context(), req.ProfileID, rewardID)
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (h *RewardHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	if profileID, ok := queryInt64(r, "profile_id"); ok {
		requests, err := h.rewards.ListRequestsByProfile(profileID)
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		if requests == nil {
			requests = []model.PurchaseRequest{}
		}
		writeJSON(w, http.StatusOK, requests)
		return
	}

	requests, err := h.rewards.ListPendingRequests(1)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if requests == nil {
		requests = []model.PurchaseRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *RewardHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.processRequest(w, r, true)
}

func (h *RewardHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.processRequest(w, r, false)
}

func (h *RewardHandler) processRequest(w http.ResponseWriter, r *http.Request, approve bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var err error
	if approve {
		err = h.engine.ApprovePurchase(r.Context(), id)
	} else {
		err = h.engine.RejectPurchase(r.Context(), id)
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	request, err := h.rewards.GetRequest(id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}
