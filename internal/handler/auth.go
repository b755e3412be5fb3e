package handler

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/listkeep/listkeep/internal/auth"
	"github.com/listkeep/listkeep/internal/middleware"
	"github.com/listkeep/listkeep/internal/store"
	"github.com/listkeep/listkeep/internal/validate"
)

const sessionCookieMaxAge = 30 * 24 * 60 * 60

type AuthHandler struct {
	service   *auth.Service
	templates *template.Template
	logger    *slog.Logger
}

func NewAuthHandler(service *auth.Service, logger *slog.Logger) *AuthHandler {
	tmpl := template.Must(template.ParseGlob("web/templates/auth_*.html"))
	return &AuthHandler{
		service:   service,
		templates: tmpl,
		logger:    logger,
	}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.templates.ExecuteTemplate(w, "auth_login.html", nil)
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.templates.ExecuteTemplate(w, "auth_register.html", nil)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	} else {
		req.Name = r.FormValue("name")
		req.Email = r.FormValue("email")
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	user, err := h.service.Register(req.Name, req.Email, req.Username, req.Password)
	if err != nil {
		var verr *validate.ValidationError
		switch {
		case errors.As(err, &verr):
			writeMessage(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, store.ErrEmailTaken), errors.Is(err, store.ErrUsernameTaken):
			writeMessage(w, http.StatusConflict, "User already exists")
		default:
			h.logger.Error("register", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, apiResponse{
		Status:  http.StatusCreated,
		Message: "User registered",
		Data:    user,
	})
}

type loginRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	} else {
		req.LoginID = r.FormValue("login_id")
		req.Password = r.FormValue("password")
	}

	sess, err := h.service.Login(strings.TrimSpace(req.LoginID), req.Password)
	if err != nil {
		var verr *validate.ValidationError
		switch {
		case errors.As(err, &verr):
			writeMessage(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, auth.ErrNotFound):
			writeMessage(w, http.StatusBadRequest, "User not found, please register first")
		case errors.Is(err, auth.ErrInvalidPassword):
			// Never echo the submitted password.
			writeMessage(w, http.StatusBadRequest, "Invalid password")
		default:
			h.logger.Error("login", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := h.service.Logout(ac.SessionID); err != nil {
		// Destroying the session failed; do not pretend the logout
		// succeeded.
		h.logger.Error("logout", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) LogoutAllDevices(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if _, err := h.service.LogoutAll(ac.Username); err != nil {
		h.logger.Error("logout all devices", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	clearSessionCookie(w)
	writeMessage(w, http.StatusOK, "Logged out from all devices")
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func isJSON(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/json"
}
