// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dealcraft/dealcraft/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	// OpenAI access for both the realtime engine and the outcome classifier.
	OpenAIAPIKey    string
	RealtimeModel   string
	ClassifierModel string
	Voice           string

	// Conversation setup, read once per session start.
	Mode          domain.Mode
	Difficulty    domain.Difficulty
	TriggerPhrase string
	ExitPhrases   []string
	BuyPhrases    []string

	// Persona/script blobs assembled into the upstream instruction payload.
	// Content is opaque to the orchestration core.
	SellerScript   string
	CustomerScript string

	// ClassifyWindow bounds how many recent messages are sent per
	// classification call.
	ClassifyWindow int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		FrontendURL:     getEnv("FRONTEND_URL", ""),
		DBPath:          getEnv("DB_PATH", "./data/dealcraft.db"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		RealtimeModel:   getEnv("REALTIME_MODEL", "gpt-4o-realtime-preview"),
		ClassifierModel: getEnv("CLASSIFIER_MODEL", "gpt-4o-mini"),
		Voice:           getEnv("VOICE", "alloy"),
		Mode:            domain.Mode(getEnv("TRAINING_MODE", string(domain.ModeAISeller))),
		Difficulty:      domain.Difficulty(getEnv("DIFFICULTY", string(domain.DifficultyMedium))),
		TriggerPhrase:   getEnv("TRIGGER_PHRASE", "show me what you have"),
		ExitPhrases:     getEnvList("EXIT_PHRASES", defaultExitPhrases),
		BuyPhrases:      getEnvList("BUY_PHRASES", defaultBuyPhrases),
		SellerScript:    getEnv("SELLER_SCRIPT", defaultSellerScript),
		CustomerScript:  getEnv("CUSTOMER_SCRIPT", defaultCustomerScript),
		ClassifyWindow:  getEnvInt("CLASSIFY_WINDOW", 12),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("TRAINING_MODE must be %s or %s", domain.ModeAISeller, domain.ModeAICustomer)
	}
	if !c.Difficulty.Valid() {
		return fmt.Errorf("DIFFICULTY must be one of EASY, MEDIUM, HARD, EXPERT")
	}
	if c.TriggerPhrase == "" {
		return fmt.Errorf("TRIGGER_PHRASE cannot be empty")
	}
	if len(c.ExitPhrases) == 0 {
		return fmt.Errorf("EXIT_PHRASES cannot be empty")
	}
	if c.ClassifyWindow <= 0 {
		return fmt.Errorf("CLASSIFY_WINDOW must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

var defaultExitPhrases = []string{
	"bye", "goodbye", "see you", "gotta go", "hang up", "i'm done",
	"not interested", "auf wiedersehen", "tschüss",
}

var defaultBuyPhrases = []string{
	"i'll take it", "i'll buy", "order one", "sign me up", "let's do it",
	"where do i sign", "ich nehme es", "ich kaufe",
}

const defaultSellerScript = `You are an experienced retail salesperson in a consumer electronics store.
Greet the customer warmly, ask open discovery questions, present one product
that fits their needs, handle objections, and work toward a clear closing
question. Speak naturally and keep answers short.`

const defaultCustomerScript = `You are a customer in a retail store being approached by a salesperson in
training. Stay in character, raise realistic objections, and only agree to
buy if the salesperson genuinely convinces you.`

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvList reads a comma-separated list, trimming blanks.
func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
