// Package server wires the stores, ledger, sweeper, and notification fan-out
// together and owns the HTTP surface.
package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"starchart/internal/auth"
	"starchart/internal/clock"
	"starchart/internal/goal"
	"starchart/internal/handler"
	"starchart/internal/ledger"
	"starchart/internal/middleware"
	"starchart/internal/notify"
	"starchart/internal/push"
	"starchart/internal/store"
	"starchart/internal/sweeper"
	ws "starchart/internal/websocket"
)

type Config struct {
	TokenSecret     string
	TokenTTL        time.Duration
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

type Server struct {
	db       *sql.DB
	hub      *ws.Hub
	sweeper  *sweeper.Sweeper
	issuer   *auth.TokenIssuer
	profileH *handler.ProfileHandler
	taskH    *handler.TaskHandler
	goalH    *handler.GoalHandler
	rewardH  *handler.RewardHandler
	giftH    *handler.GiftHandler
	historyH *handler.HistoryHandler
	pushH    *handler.PushHandler
	logger   *slog.Logger
}

func New(db *sql.DB, cfg Config, clk clock.Clock, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	profileStore := store.NewProfileStore(db)
	householdStore := store.NewHouseholdStore(db)
	taskStore := store.NewTaskStore(db)
	completionStore := store.NewCompletionStore(db)
	goalStore := store.NewGoalStore(db)
	rewardStore := store.NewRewardStore(db)
	giftStore := store.NewGiftStore(db)
	pushStore := store.NewPushStore(db)

	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, pushStore, logger)
	notifier := notify.New(hub, pushSvc, logger)

	engine := ledger.New(db, clk, notifier.LedgerEvent, logger.With("component", "ledger"))
	controller := goal.NewController(goalStore, engine, clk, logger)
	sweep := sweeper.New(householdStore, taskStore, completionStore, engine, clk, notifier.TaskExpired, logger)

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	issuer := auth.NewTokenIssuer([]byte(cfg.TokenSecret), ttl)

	return &Server{
		db:       db,
		hub:      hub,
		sweeper:  sweep,
		issuer:   issuer,
		profileH: handler.NewProfileHandler(profileStore, completionStore, engine, issuer, ttl, clk, notifier, logger.With("component", "profile")),
		taskH:    handler.NewTaskHandler(taskStore, completionStore, engine, sweep, clk, notifier, logger.With("component", "task")),
		goalH:    handler.NewGoalHandler(controller, goalStore, notifier, logger.With("component", "goal")),
		rewardH:  handler.NewRewardHandler(rewardStore, engine, notifier, logger.With("component", "reward")),
		giftH:    handler.NewGiftHandler(giftStore, engine, notifier, logger.With("component", "gift")),
		historyH: handler.NewHistoryHandler(completionStore, notifier, logger.With("component", "history")),
		pushH:    handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push")),
		logger:   logger,
	}
}

// Sweeper exposes the expiration sweeper so main can run its loop.
func (s *Server) Sweeper() *sweeper.Sweeper {
	return s.sweeper
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	// Push subscription management
	mux.HandleFunc("GET /api/push/key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)

	// Profiles and balances
	mux.HandleFunc("GET /api/profiles", s.profileH.List)
	mux.HandleFunc("POST /api/profiles", s.profileH.Create)
	mux.HandleFunc("PUT /api/profiles/{id}", s.profileH.Update)
	mux.Handle("DELETE /api/profiles/{id}", s.parent(s.profileH.Delete))
	mux.HandleFunc("GET /api/profiles/{id}/balance", s.profileH.Balance)
	mux.Handle("POST /api/profiles/{id}/pin", middleware.OptionalParentMode(s.issuer)(http.HandlerFunc(s.profileH.SetPIN)))
	mux.HandleFunc("POST /api/profiles/{id}/verify-pin", s.profileH.VerifyPIN)
	mux.Handle("POST /api/profiles/{id}/grant", s.parent(s.profileH.Grant))
	mux.HandleFunc("GET /api/leaderboard", s.profileH.Leaderboard)

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/today", s.taskH.Today)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.Handle("POST /api/tasks", s.parent(s.taskH.Create))
	mux.Handle("PUT /api/tasks/{id}", s.parent(s.taskH.Update))
	mux.Handle("DELETE /api/tasks/{id}", s.parent(s.taskH.Delete))
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.Handle("POST /api/tasks/sweep", s.parent(s.taskH.Sweep))

	// Goals
	mux.HandleFunc("GET /api/goals", s.goalH.List)
	mux.Handle("GET /api/goals/pending", s.parent(s.goalH.PendingApproval))
	mux.HandleFunc("GET /api/goals/{id}", s.goalH.Get)
	mux.HandleFunc("POST /api/goals", s.goalH.Create)
	mux.HandleFunc("POST /api/goals/{id}/progress", s.goalH.Progress)
	mux.HandleFunc("POST /api/goals/{id}/items", s.goalH.ToggleItem)
	mux.HandleFunc("POST /api/goals/{id}/request-completion", s.goalH.RequestCompletion)
	mux.HandleFunc("POST /api/goals/{id}/cancel", s.goalH.Cancel)
	mux.Handle("POST /api/goals/{id}/approve", s.parent(s.goalH.Approve))
	mux.Handle("POST /api/goals/{id}/reject", s.parent(s.goalH.Reject))
	mux.Handle("DELETE /api/goals/{id}", s.parent(s.goalH.Delete))

	// Reward catalog and purchases
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("POST /api/rewards", s.parent(s.rewardH.Create))
	mux.Handle("PUT /api/rewards/{id}", s.parent(s.rewardH.Update))
	mux.Handle("DELETE /api/rewards/{id}", s.parent(s.rewardH.Delete))
	mux.HandleFunc("POST /api/rewards/{id}/purchase", s.rewardH.Purchase)
	mux.HandleFunc("GET /api/requests", s.rewardH.ListRequests)
	mux.Handle("POST /api/requests/{id}/approve", s.parent(s.rewardH.ApproveRequest))
	mux.Handle("POST /api/requests/{id}/reject", s.parent(s.rewardH.RejectRequest))

	// Gifts
	mux.HandleFunc("GET /api/gifts", s.giftH.ListPending)
	mux.Handle("POST /api/gifts", s.parent(s.giftH.Create))
	mux.HandleFunc("POST /api/gifts/{id}/claim", s.giftH.Claim)
	mux.Handle("DELETE /api/gifts/{id}", s.parent(s.giftH.Delete))

	// History
	mux.HandleFunc("GET /api/history", s.historyH.List)
	mux.Handle("GET /api/history/unseen", s.parent(s.historyH.Unseen))
	mux.Handle("POST /api/history/{id}/seen", s.parent(s.historyH.MarkSeen))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) parent(h http.HandlerFunc) http.Handler {
	return middleware.RequireParentMode(s.issuer)(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
