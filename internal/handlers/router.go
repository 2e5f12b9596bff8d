package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"predictmarket/internal/cache"
	"predictmarket/internal/config"
	"predictmarket/internal/db"
	"predictmarket/internal/domain"
	"predictmarket/internal/middleware"
	"predictmarket/internal/websocket"
)

type Handler struct {
	txRunner   db.TxRunner
	cfg        config.Config
	users      UserStore
	questions  map[domain.Domain]QuestionStore
	trades     map[domain.Domain]TradeStore
	balances   BalanceStore
	journal    JournalStore
	admin      AdminStore
	audit      AuditStore
	placement  PlacementService
	resolution ResolutionService
	hub        *websocket.Hub
	cache      *cache.QuestionCache
	logger     *zap.Logger
}

func New(txRunner db.TxRunner, cfg config.Config, users UserStore, questions map[domain.Domain]QuestionStore, trades map[domain.Domain]TradeStore, balances BalanceStore, journal JournalStore, admin AdminStore, audit AuditStore, placement PlacementService, resolution ResolutionService, hub *websocket.Hub, questionCache *cache.QuestionCache, logger *zap.Logger) *Handler {
	return &Handler{
		txRunner:   txRunner,
		cfg:        cfg,
		users:      users,
		questions:  questions,
		trades:     trades,
		balances:   balances,
		journal:    journal,
		admin:      admin,
		audit:      audit,
		placement:  placement,
		resolution: resolution,
		hub:        hub,
		cache:      questionCache,
		logger:     logger,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/questions", h.ListQuestions)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/questions/{domain}/{id}", h.GetQuestion)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/trades", h.PlaceTrades)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/trades", h.ListTrades)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/transactions", h.ListTransactions)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/balance", h.GetBalance)
	router.Get("/ws/updates", h.WSUpdates)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.With(middleware.RequireAdmin(h.admin, "CanManageQuestions")).Post("/questions", h.CreateQuestion)
		r.With(middleware.RequireAdmin(h.admin, "CanResolve")).Post("/questions/{domain}/{id}/resolve", h.ResolveQuestion)
		r.With(middleware.RequireAdmin(h.admin, "CanResolve")).Post("/trades/{domain}/{id}/resolve", h.ResolveTrade)
		r.With(middleware.RequireAdmin(h.admin, "CanManageFunds")).Post("/funds", h.GrantFunds)
		r.With(middleware.RequireAdmin(h.admin, "CanViewUsers")).Get("/users", h.AdminListUsers)
		r.With(middleware.RequireAdmin(h.admin, "CanViewAudit")).Get("/audit", h.ListAuditLogs)
		r.With(middleware.RequireAdmin(h.admin, "")).Post("/promote", h.PromoteAdmin)
		r.With(middleware.RequireAdmin(h.admin, "")).Post("/roles/grant", h.GrantRole)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
