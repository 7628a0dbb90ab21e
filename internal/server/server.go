// Package server exposes the HTTP API: chat turns, history, subscriptions,
// admin broadcast and the mail report relay.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"chatrelay/internal/chat"
	"chatrelay/internal/mailer"
	"chatrelay/internal/push"
)

type Server struct {
	chat          *chat.Service
	registry      *push.Registry
	dispatcher    *push.Dispatcher
	mailer        *mailer.Mailer
	adminPassword string

	server    *http.Server
	port      int
	startTime time.Time
}

func New(chatSvc *chat.Service, registry *push.Registry, dispatcher *push.Dispatcher, m *mailer.Mailer, adminPassword string, port int) *Server {
	return &Server{
		chat:          chatSvc,
		registry:      registry,
		dispatcher:    dispatcher,
		mailer:        m,
		adminPassword: adminPassword,
		port:          port,
		startTime:     time.Now(),
	}
}

func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/delete-chat", s.handleDeleteChat)
	mux.HandleFunc("/subscribe", s.handleSubscribe)
	mux.HandleFunc("/broadcast", s.handleBroadcast)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/api/status", s.handleStatus)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("starting chatrelay server on :%d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
