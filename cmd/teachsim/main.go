package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	teachsim "github.com/lumenlearn/teachsim"
	"github.com/lumenlearn/teachsim/common/logger"
	"github.com/lumenlearn/teachsim/config"
	"github.com/lumenlearn/teachsim/schema"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "teachsim:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to yaml config (defaults apply when empty)")
	seedPath := flag.String("seed", "", "path to yaml file of bootstrap strategies")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	logger.SetLevel(parseLevel(*logLevel))

	ctx := context.Background()
	srv, engine, err := teachsim.NewServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	if *seedPath != "" {
		strategies, err := loadSeed(*seedPath)
		if err != nil {
			return err
		}
		if err := engine.Seed(ctx, strategies); err != nil {
			return fmt.Errorf("seed knowledge index: %w", err)
		}
		logger.Infof("seeded %d strategies", len(strategies))
	}

	return mcpserver.ServeStdio(srv)
}

func loadSeed(path string) ([]schema.Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var strategies []schema.Strategy
	if err := yaml.Unmarshal(data, &strategies); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return strategies, nil
}

func parseLevel(s string) logger.LogLevel {
	switch s {
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}
