package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/parley/pkg/chat"
	"github.com/go-go-golems/parley/pkg/ingest"
	"github.com/go-go-golems/parley/pkg/mcpserver"
	"github.com/go-go-golems/parley/pkg/models"
	"github.com/go-go-golems/parley/pkg/openrouter"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/go-go-golems/parley/pkg/store"
)

var cfg *settings.Settings

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Minimal MCP server for peer AI model conversations",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = settings.Load()
		if err != nil {
			return err
		}
		cfg.SetupLogging()
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat tool over MCP on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.OpenRouterAPIKey == "" {
			log.Error().Msg("OPENROUTER_API_KEY environment variable not set")
			log.Error().Msg("Get your API key at: https://openrouter.ai/keys")
			return errors.New("OPENROUTER_API_KEY environment variable not set")
		}

		registry, err := models.NewRegistry(cfg.AllowedModels)
		if err != nil {
			return err
		}

		storeOptions := []store.Option{store.WithAliaser(registry)}
		if cfg.CacheSize > 0 {
			storeOptions = append(storeOptions, store.WithCacheSize(cfg.CacheSize))
		}
		st, err := store.New(cfg.StorageDir, storeOptions...)
		if err != nil {
			return err
		}

		clientOptions := []openrouter.ClientOption{}
		if cfg.BaseURL != "" {
			clientOptions = append(clientOptions, openrouter.WithBaseURL(cfg.BaseURL))
		}
		client := openrouter.NewClient(cfg.OpenRouterAPIKey, clientOptions...)

		builder, err := ingest.NewBuilder()
		if err != nil {
			return err
		}

		handler := chat.NewHandler(st, registry, client, builder)
		return mcpserver.New(handler, st, registry).ServeStdio()
	},
}

func newListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recently updated conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := models.NewRegistry(cfg.AllowedModels)
			if err != nil {
				return err
			}
			st, err := store.New(cfg.StorageDir, store.WithAliaser(registry))
			if err != nil {
				return err
			}

			summaries := st.ListRecent(limit)
			if len(summaries) == 0 {
				fmt.Println("No conversations found.")
				return nil
			}
			for _, s := range summaries {
				model := s.ModelUsed
				if model == "" {
					model = "-"
				}
				fmt.Printf("%s  %s  %-16s  %s\n",
					s.ID, s.Updated.Format("2006-01-02 15:04"), model, s.Title)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of conversations to list")
	return cmd
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the available model registry entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := models.NewRegistry(cfg.AllowedModels)
		if err != nil {
			return err
		}
		for _, alias := range registry.Aliases() {
			m, _ := registry.Get(alias)
			fmt.Printf("%-18s %-32s %s\n", alias, m.Name, m.Description)
		}
		return nil
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
