package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"chatrelay/internal/chat"
)

type chatRequest struct {
	UserID      string `json:"userId"`
	CurrentChat string `json:"currentChat"`
	Message     string `json:"message"`
	UserInfo    struct {
		Name string `json:"name"`
	} `json:"userInfo"`
}

type chatResponse struct {
	Response string `json:"response"`
	Cached   bool   `json:"cached"`
	ChatID   string `json:"chatId"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reply, err := s.chat.HandleTurn(r.Context(), req.UserID, req.CurrentChat, req.Message, req.UserInfo.Name)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message must not be empty")
			return
		}
		writeError(w, http.StatusInternalServerError, "chat turn failed")
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: reply.Text, Cached: reply.Cached, ChatID: reply.ChatID})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId query parameter required")
		return
	}
	writeJSON(w, http.StatusOK, s.chat.History(userID))
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req struct {
		UserID string `json:"userId"`
		ChatID string `json:"chatId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": s.chat.DeleteChat(req.UserID, req.ChatID)})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.registry.Add(req.Token); err != nil {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req struct {
		Password string `json:"password"`
		Message  string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Password != s.adminPassword {
		writeError(w, http.StatusForbidden, "wrong password")
		return
	}
	tokens := s.registry.All()
	if len(tokens) == 0 {
		writeError(w, http.StatusNotFound, "no registered tokens")
		return
	}
	// delivery runs detached; "started" means enqueued, not delivered
	go s.dispatcher.Dispatch(tokens, req.Message)
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}
	username := r.FormValue("username")
	message := r.FormValue("message")
	userEmail := r.FormValue("user_email")

	var photo []byte
	photoName := ""
	if file, header, err := r.FormFile("photo"); err == nil {
		photo, _ = io.ReadAll(file)
		photoName = header.Filename
		_ = file.Close()
	}

	if err := s.mailer.SendReport(username, userEmail, message, photo, photoName); err != nil {
		log.Printf("report mail failed: %v", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
