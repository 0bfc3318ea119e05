package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-pdfchat/internal/middleware"
	"github.com/iyunix/go-pdfchat/internal/ratelimit"
)

const hashRoute = "{hash:[0-9a-f]+}"

type RouterConfig struct {
	Chats          *ChatHandler
	Files          *FileHandler
	Logs           *LogHandler
	Verifier       middleware.TokenVerifier
	SendLimiter    *ratelimit.MemoryRateLimiter
	Ping           Pinger
	RequestTimeout time.Duration
	Logger         Logger
}

// NewRouter wires every route behind the shared middleware chain. All /api
// routes require a bearer token. CORS wraps the router itself so preflight
// requests are answered even though no route matches OPTIONS.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(MethodNotAllowed)

	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger))
	r.Use(middleware.SecurityHeaders)

	r.HandleFunc("/health", Health(cfg.Ping, cfg.Logger)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewBearerAuthMiddleware(cfg.Verifier, cfg.Logger))
	if cfg.RequestTimeout > 0 {
		api.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	send := http.Handler(http.HandlerFunc(cfg.Chats.SendMessage))
	if cfg.SendLimiter != nil {
		send = middleware.RateLimitMiddleware(cfg.SendLimiter, "send_message", cfg.Logger)(send)
	}
	api.Handle("/messages", send).Methods(http.MethodPost)

	api.HandleFunc("/chats", cfg.Chats.GetUserChats).Methods(http.MethodGet)
	api.HandleFunc("/chats", cfg.Chats.CreateChat).Methods(http.MethodPost)
	api.HandleFunc("/chats/{id}/messages", cfg.Chats.GetChatMessages).Methods(http.MethodGet)
	api.HandleFunc("/chats/{id}", cfg.Chats.RenameChat).Methods(http.MethodPut)
	api.HandleFunc("/chats/{id}", cfg.Chats.DeleteChat).Methods(http.MethodDelete)
	api.HandleFunc("/files/"+hashRoute, cfg.Files.GetFile).Methods(http.MethodGet)
	api.HandleFunc("/log", cfg.Logs.LogClientEvent).Methods(http.MethodPost)

	return middleware.CORS(r)
}
