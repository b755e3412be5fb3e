package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/listkeep/listkeep/internal/auth"
	"github.com/listkeep/listkeep/internal/backup"
	"github.com/listkeep/listkeep/internal/handler"
	"github.com/listkeep/listkeep/internal/middleware"
	"github.com/listkeep/listkeep/internal/push"
	"github.com/listkeep/listkeep/internal/store"
	ws "github.com/listkeep/listkeep/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	todoH         *handler.TodoHandler
	pushH         *handler.PushHandler
	templateH     *handler.TemplateHandler
	sessionStore  *store.SessionStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, pushCfg push.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	todoStore := store.NewTodoStore(db)
	pushStore := store.NewPushStore(db)

	authSvc := auth.NewService(userStore, sessionStore, logger.With("component", "auth"))

	backupMgr := backup.NewManager(backupCfg, db, logger.With("component", "backup"))

	pushLogger := logger.With("component", "push")
	var pushSvc *push.Service
	var pushSched *push.Scheduler
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
		pushSched = push.NewScheduler(pushSvc, todoStore, pushStore, pushLogger)
	}

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(authSvc, logger.With("component", "auth_handler")),
		todoH:         handler.NewTodoHandler(todoStore, hub, logger.With("component", "todo")),
		pushH:         handler.NewPushHandler(pushSvc, pushStore, pushLogger),
		templateH:     handler.NewTemplateHandler(todoStore, logger.With("component", "template")),
		sessionStore:  sessionStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the encrypted backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the due-reminder scheduler, or nil when VAPID
// keys are not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /{$}", s.templateH.Landing)
	outerMux.HandleFunc("GET /login", s.authH.LoginPage)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /register", s.authH.RegisterPage)
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	outerMux.HandleFunc("GET /health", s.templateH.Health)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard", s.templateH.Dashboard)
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("POST /logout_from_all_devices", s.authH.LogoutAllDevices)

	// Todo API routes
	mux.HandleFunc("POST /api/todos", s.todoH.Create)
	mux.HandleFunc("GET /api/todos", s.todoH.List)
	mux.HandleFunc("PUT /api/todos/{id}", s.todoH.Update)
	mux.HandleFunc("POST /api/todos/{id}/done", s.todoH.ToggleDone)
	mux.HandleFunc("DELETE /api/todos/{id}", s.todoH.Delete)

	// Push notification API routes
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
