package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askagent/askagent/config"
	"github.com/askagent/askagent/internal/pipeline"
	"github.com/askagent/askagent/internal/server"
	"github.com/askagent/askagent/internal/store"
)

func main() {
	var cfgPath string
	var root = &cobra.Command{Use: "askagent"}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serveAddr == "" {
				serveAddr = os.Getenv("ASKAGENT_HTTP_ADDR")
			}
			cfg := config.LoadConfig(cfgPath)
			return server.Run(serveAddr, cfg)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address")

	var migDir string
	var direction string
	var steps int
	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			return store.Migrate(migDir, cfg.Storage.Postgres.DSN(), direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	var ask = &cobra.Command{
		Use:   "ask [question]",
		Short: "Run a research question from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			logger := log.New(os.Stderr, "[ASK] ", log.LstdFlags)
			orch := pipeline.New(cfg, logger)
			if len(args) > 0 {
				return runQuestion(cmd.Context(), orch, cfg, strings.Join(args, " "))
			}
			return interactive(cmd.Context(), orch, cfg)
		},
	}

	root.AddCommand(serve, migrate, ask)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runQuestion(ctx context.Context, orch *pipeline.Orchestrator, cfg *config.Config, question string) error {
	res, err := orch.Run(ctx, pipeline.Request{
		Question: question,
		Credentials: pipeline.Credentials{
			LLMKey:      cfg.LLM.APIKey,
			ScrapingKey: cfg.Scraping.APIKey,
		},
		Datasets: pipeline.DatasetIDs{
			Posts:    cfg.Datasets.PostsDatasetID,
			Comments: cfg.Datasets.CommentsDatasetID,
		},
	})
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(res.FinalAnswer)
	fmt.Println()
	for source, status := range res.Statuses {
		fmt.Printf("  %s: %s\n", source, status)
	}
	return nil
}

func interactive(ctx context.Context, orch *pipeline.Orchestrator, cfg *config.Config) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("question> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			continue
		}
		if q == "exit" || q == "quit" {
			return nil
		}
		if err := runQuestion(ctx, orch, cfg, q); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}
