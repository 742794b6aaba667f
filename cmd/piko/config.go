package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/ochairo/piko/internal/domain/services"
)

// Config is the operator environment of one invocation
type Config struct {
	Repository       string // owner/repo receiving releases
	GitHubToken      string
	TelegramToken    string
	TelegramChatID   string
	TelegramThreadID string
	RecipesDir       string
	Recipe           string
	WorkDir          string
	OutputDir        string
	Java             string
	LogLevel         string
}

// newViper returns a viper instance bound to the environment variables piko reads
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("recipes_dir", "recipes")
	v.SetDefault("recipe", "twitter")
	v.SetDefault("work_dir", "work")
	v.SetDefault("output_dir", "dist")
	v.SetDefault("java", "java")
	v.SetDefault("log_level", "info")

	bindings := map[string][]string{
		"repository":         {"CURRENT_REPOSITORY"},
		"github_token":       {"GITHUB_TOKEN", "GH_TOKEN"},
		"telegram_token":     {"TELEGRAM_TOKEN"},
		"telegram_chat_id":   {"TELEGRAM_CHAT_ID"},
		"telegram_thread_id": {"TELEGRAM_THREAD_ID"},
		"work_dir":           {"PIKO_WORK_DIR"},
		"output_dir":         {"PIKO_OUTPUT_DIR"},
		"java":               {"PIKO_JAVA"},
		"log_level":          {"PIKO_LOG_LEVEL"},
	}
	for key, envs := range bindings {
		// BindEnv only fails without a key
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	return v
}

// loadConfig reads the bound environment and flags
func loadConfig(v *viper.Viper) Config {
	return Config{
		Repository:       v.GetString("repository"),
		GitHubToken:      v.GetString("github_token"),
		TelegramToken:    v.GetString("telegram_token"),
		TelegramChatID:   v.GetString("telegram_chat_id"),
		TelegramThreadID: v.GetString("telegram_thread_id"),
		RecipesDir:       v.GetString("recipes_dir"),
		Recipe:           v.GetString("recipe"),
		WorkDir:          v.GetString("work_dir"),
		OutputDir:        v.GetString("output_dir"),
		Java:             v.GetString("java"),
		LogLevel:         v.GetString("log_level"),
	}
}

// requireRepository fails when CURRENT_REPOSITORY is unset
func (c Config) requireRepository() error {
	if c.Repository == "" {
		return services.NewPipelineError(services.ConfigFailure, "CURRENT_REPOSITORY",
			fmt.Errorf("release repository is not set"))
	}
	return nil
}

// notifierConfigured reports whether Telegram credentials are present
func (c Config) notifierConfigured() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}
