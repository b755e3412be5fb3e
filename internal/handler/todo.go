package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/listkeep/listkeep/internal/auth"
	"github.com/listkeep/listkeep/internal/model"
	"github.com/listkeep/listkeep/internal/store"
	"github.com/listkeep/listkeep/internal/websocket"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxTodoTextLen  = 1000
)

type TodoHandler struct {
	todoStore *store.TodoStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewTodoHandler(ts *store.TodoStore, hub *websocket.Hub, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todoStore: ts, hub: hub, logger: logger}
}

func (h *TodoHandler) broadcast(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.BroadcastToUser(userID, msg)
	}
}

type todoRequest struct {
	Text  string     `json:"text"`
	Done  bool       `json:"done"`
	DueAt *time.Time `json:"due_at"`
}

func (r *todoRequest) validate() string {
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return "Todo text is required"
	}
	if len(r.Text) > maxTodoTextLen {
		return "Todo text too long"
	}
	return ""
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req todoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	todo, err := h.todoStore.Create(userID, req.Text, req.DueAt)
	if err != nil {
		h.logger.Error("create todo", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to create todo")
		return
	}

	h.broadcast(userID, websocket.NewMessage("todo", "created", todo.ID, map[string]any{"text": todo.Text}))

	writeJSON(w, http.StatusCreated, todo)
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	skip := parseQueryInt(r, "skip", 0)
	limit := parseQueryInt(r, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	todos, err := h.todoStore.List(userID, skip, limit)
	if err != nil {
		h.logger.Error("list todos", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to list todos")
		return
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}

	var req todoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	todo, err := h.todoStore.Update(id, userID, req.Text, req.Done, req.DueAt)
	if err != nil {
		h.logger.Error("update todo", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to update todo")
		return
	}
	if todo == nil {
		writeMessage(w, http.StatusNotFound, "Todo not found")
		return
	}

	h.broadcast(userID, websocket.NewMessage("todo", "updated", id, nil))

	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) ToggleDone(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}

	todo, err := h.todoStore.ToggleDone(id, userID)
	if err != nil {
		h.logger.Error("toggle todo", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to update todo")
		return
	}
	if todo == nil {
		writeMessage(w, http.StatusNotFound, "Todo not found")
		return
	}

	h.broadcast(userID, websocket.NewMessage("todo", "updated", id, nil))

	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}

	ok, err := h.todoStore.Delete(id, userID)
	if err != nil {
		h.logger.Error("delete todo", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to delete todo")
		return
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "Todo not found")
		return
	}

	h.broadcast(userID, websocket.NewMessage("todo", "deleted", id, nil))

	writeMessage(w, http.StatusOK, "Todo deleted")
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
