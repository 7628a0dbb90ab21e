package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"chatrelay/internal/cache"
	"chatrelay/internal/chat"
	"chatrelay/internal/config"
	"chatrelay/internal/llm"
	"chatrelay/internal/mailer"
	"chatrelay/internal/push"
	"chatrelay/internal/scheduler"
	"chatrelay/internal/server"
	"chatrelay/internal/store"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	// single shared outbound handle for the whole process
	httpClient := &http.Client{}
	defer httpClient.CloseIdleConnections()

	st, err := store.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	factory := &llm.Factory{
		HTTPClient:   httpClient,
		GeminiBase:   cfg.GeminiBaseURL,
		GeminiModel:  cfg.GeminiModel,
		GeminiKeys:   cfg.GeminiAPIKeys,
		OpenAIKey:    cfg.OpenAIAPIKey,
		OpenAIBase:   cfg.OpenAIBaseURL,
		OpenAIModel:  cfg.OpenAIModel,
		SystemPrompt: readSystemPrompt(cfg.SystemPromptPath),
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxOutputTokens,
	}
	clients := factory.Clients()
	if len(clients) == 0 {
		log.Fatalf("no usable generation credentials configured")
	}
	gateway := llm.NewGateway(clients, cfg.RequestTimeout)

	chatSvc := chat.NewService(st, cache.New(st), gateway)
	registry := push.NewRegistry(st)

	var sender push.Sender
	if cfg.PushServerKey != "" {
		sender = push.NewHTTPSender(httpClient, cfg.PushEndpoint, cfg.PushServerKey)
	} else {
		log.Printf("PUSH_SERVER_KEY not set, broadcast dispatch disabled")
	}
	dispatcher := push.NewDispatcher(sender, cfg.PushTitle)

	m := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.ReportAddress)
	if !m.Enabled() {
		log.Printf("SMTP not configured, report relay disabled")
	}

	sched := scheduler.New(httpClient, cfg.SelfURL, st, registry, dispatcher, cfg.InactivityThreshold)
	if err := sched.Start(cfg.PingInterval, cfg.SweepInterval); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	srv := server.New(chatSvc, registry, dispatcher, m, cfg.AdminPassword, cfg.Port)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	sched.Stop()
	if err := srv.Stop(); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

func readSystemPrompt(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("system prompt file not found or unreadable at %s: %v", path, err)
		return ""
	}
	return string(data)
}
