package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/listkeep/listkeep/internal/auth"
	"github.com/listkeep/listkeep/internal/push"
	"github.com/listkeep/listkeep/internal/store"
)

type PushHandler struct {
	service   *push.Service
	pushStore *store.PushStore
	logger    *slog.Logger
}

func NewPushHandler(service *push.Service, ps *store.PushStore, logger *slog.Logger) *PushHandler {
	return &PushHandler{service: service, pushStore: ps, logger: logger}
}

// VAPIDKey returns the public key browsers need to subscribe.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Push notifications not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dhKey  string `json:"p256dh"`
	AuthKey    string `json:"auth"`
	DeviceName string `json:"device_name"`
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Endpoint = strings.TrimSpace(req.Endpoint)
	if req.Endpoint == "" || req.P256dhKey == "" || req.AuthKey == "" {
		writeMessage(w, http.StatusBadRequest, "Missing subscription fields")
		return
	}

	sub, err := h.pushStore.Create(userID, req.Endpoint, req.P256dhKey, req.AuthKey, req.DeviceName)
	if err != nil {
		h.logger.Error("save push subscription", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to save subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}

	ok, err := h.pushStore.Delete(id, userID)
	if err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to delete subscription")
		return
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "Subscription not found")
		return
	}
	writeMessage(w, http.StatusOK, "Subscription deleted")
}
