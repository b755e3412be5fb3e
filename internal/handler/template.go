package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/listkeep/listkeep/internal/auth"
	"github.com/listkeep/listkeep/internal/model"
	"github.com/listkeep/listkeep/internal/store"
)

type TemplateHandler struct {
	todoStore *store.TodoStore
	templates *template.Template
	logger    *slog.Logger
}

func NewTemplateHandler(ts *store.TodoStore, logger *slog.Logger) *TemplateHandler {
	tmpl := template.Must(template.ParseGlob("web/templates/*.html"))
	return &TemplateHandler{
		todoStore: ts,
		templates: tmpl,
		logger:    logger,
	}
}

func (h *TemplateHandler) Landing(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := h.templates.ExecuteTemplate(w, "landing.html", nil); err != nil {
		h.logger.Error("render landing", "error", err)
	}
}

type dashboardData struct {
	Username string
	Todos    []model.Todo
	PageSize int
}

func (h *TemplateHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	todos, err := h.todoStore.List(ac.UserID, 0, defaultPageSize)
	if err != nil {
		h.logger.Error("load todos for dashboard", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	data := dashboardData{
		Username: ac.Username,
		Todos:    todos,
		PageSize: defaultPageSize,
	}
	if err := h.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		h.logger.Error("render dashboard", "error", err)
	}
}

func (h *TemplateHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
