package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hopeflow/backend/internal/auth"
	"github.com/hopeflow/backend/internal/handler/history"
	"github.com/hopeflow/backend/internal/handler/profile"
	"github.com/hopeflow/backend/internal/handler/talk"
	"github.com/hopeflow/backend/internal/handler/voice"
	middlewarePkg "github.com/hopeflow/backend/internal/middleware"
	"github.com/hopeflow/backend/internal/observability"
	chatService "github.com/hopeflow/backend/internal/service/chat"
	voiceService "github.com/hopeflow/backend/internal/service/voice"
	"github.com/hopeflow/backend/pkg/utils"
)

// Dependencies 路由所需的核心服务
type Dependencies struct {
	ChatService *chatService.Service
	Resolver    auth.Resolver
	Provider    string
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Voice       voiceService.Settings
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"provider": deps.Provider,
			"store":    deps.ChatService.StoreKind(),
		})
	})
	r.Handle("/metrics", deps.Metrics.Handler())

	talkHandler := talk.New(deps.ChatService, logger)
	historyHandler := history.New(deps.ChatService)
	profileHandler := profile.New(deps.ChatService)
	voiceHandler := voice.NewWebSocketHandler(deps.ChatService, deps.Voice, logger, deps.Metrics)

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewarePkg.Authenticate(deps.Resolver, logger.Named("auth")))

		talkHandler.RegisterRoutes(api)
		historyHandler.RegisterRoutes(api)
		profileHandler.RegisterRoutes(api)
		voiceHandler.RegisterRoutes(api)
	})

	return r
}
