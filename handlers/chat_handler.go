package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"wanderwise/middleware"
	"wanderwise/services"
	"wanderwise/utils/errors"
)

const chatFailureMessage = "Internal server error"

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// History handles GET /chathistory/{email}.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	if err := middleware.RequireEmail(r, email); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	turns, err := h.chatService.History(r.Context(), email, r.URL.Query().Get("tripId"))
	if err != nil {
		middleware.WriteError(w, r, collapse(err, chatFailureMessage))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"chatHistory": turns})
}

// SendMessage handles POST /sendMessage.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email   string `json:"email"`
		Message string `json:"message"`
		TripID  string `json:"tripId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, r, errors.ErrInvalidInput)
		return
	}
	if err := middleware.RequireEmail(r, input.Email); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	reply, err := h.chatService.Send(r.Context(), input.Email, input.TripID, input.Message)
	if err != nil {
		middleware.WriteError(w, r, collapse(err, chatFailureMessage))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": reply})
}
