package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Port    int    `env:"PORT" envDefault:"8080"`
	DataDir string `env:"DATA_DIR" envDefault:"data"`

	// Generation provider: ordered credential set tried in sequence
	GeminiAPIKeys []string `env:"GEMINI_API_KEYS,required" envSeparator:":"`
	GeminiModel   string   `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	GeminiBaseURL string   `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`

	// Optional OpenAI-compatible provider, appended after the Gemini keys
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	Temperature     float64       `env:"GEN_TEMPERATURE" envDefault:"0.9"`
	MaxOutputTokens int           `env:"GEN_MAX_TOKENS" envDefault:"1024"`
	RequestTimeout  time.Duration `env:"GEN_REQUEST_TIMEOUT" envDefault:"30s"`

	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH" envDefault:"prompts/system_prompt.txt"`

	// Admin + push
	AdminPassword string `env:"ADMIN_PASSWORD,required"`
	PushEndpoint  string `env:"PUSH_ENDPOINT" envDefault:"https://fcm.googleapis.com/fcm/send"`
	PushServerKey string `env:"PUSH_SERVER_KEY"`
	PushTitle     string `env:"PUSH_TITLE" envDefault:"chatrelay"`

	// Mail relay
	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	ReportAddress string `env:"REPORT_ADDRESS"`

	// Background tasks
	SelfURL             string        `env:"SELF_URL"`
	PingInterval        time.Duration `env:"PING_INTERVAL" envDefault:"10m"`
	SweepInterval       time.Duration `env:"SWEEP_INTERVAL" envDefault:"6h"`
	InactivityThreshold time.Duration `env:"INACTIVITY_THRESHOLD" envDefault:"48h"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
