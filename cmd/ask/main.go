// Command ask sends one prompt to the configured Ollama model and prints the reply.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/healthguard/internal/adapters/llm"
	"github.com/okian/healthguard/internal/config"
	"github.com/okian/healthguard/pkg/logger"
)

const defaultPrompt = "Explain diabetes in simple words."

func main() {
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("ask")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal(ctx, "failed to load config", logger.Error(err))
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	client := llm.New(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.OllamaModel),
		llm.WithTimeout(time.Duration(cfg.OllamaTimeoutSec)*time.Second),
	)

	prompt := promptFromArgs(os.Args[1:])
	log.Debug(ctx, "generating", logger.String("model", client.Model()), logger.String("url", cfg.OllamaURL))

	text, err := client.Generate(ctx, prompt)
	if err != nil {
		log.Fatal(ctx, "generation failed", logger.Error(err))
	}
	fmt.Println(text)
}

// promptFromArgs joins the arguments into one prompt, falling back to the default.
func promptFromArgs(args []string) string {
	p := strings.TrimSpace(strings.Join(args, " "))
	if p == "" {
		return defaultPrompt
	}
	return p
}
