package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"wanderwise/middleware"
	"wanderwise/services"
	"wanderwise/utils/errors"
)

const (
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/refresh-token"
)

type AuthHandler struct {
	authService  *services.AuthService
	cookieSecure bool
	refreshTTL   time.Duration
}

func NewAuthHandler(authService *services.AuthService, cookieSecure bool, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{authService: authService, cookieSecure: cookieSecure, refreshTTL: refreshTTL}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, r, errors.ErrInvalidInput)
		return
	}

	if err := h.authService.Register(r.Context(), input.Name, input.Email, input.Password); err != nil {
		middleware.WriteError(w, r, errors.Wrap(err, "REGISTRATION_ERROR", "Failed to register user", http.StatusInternalServerError))
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully!"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, r, errors.ErrInvalidInput)
		return
	}

	session, err := h.authService.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		middleware.WriteError(w, r, errors.Wrap(err, "LOGIN_ERROR", "Failed to login user", http.StatusUnauthorized))
		return
	}
	http.SetCookie(w, h.refreshCookie(session.RefreshToken, int(h.refreshTTL.Seconds())))
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"accessToken": session.AccessToken})
}

func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		refreshToken = cookie.Value
	}

	accessToken, err := h.authService.Renew(r.Context(), refreshToken)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		refreshToken = cookie.Value
	}
	accessToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	if err := h.authService.Logout(r.Context(), refreshToken, accessToken); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	http.SetCookie(w, h.refreshCookie("", -1))
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
