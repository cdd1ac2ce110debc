package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/arawak/toolshelf/internal/apperr"
	"github.com/arawak/toolshelf/internal/config"
	"github.com/arawak/toolshelf/internal/tagclient"
)

// app carries what every subcommand needs once flags and env are resolved.
type app struct {
	cfg    *config.ClientConfig
	logger *slog.Logger

	serverURL string
	apiKey    string
	logLevel  string
}

func (a *app) backend() *tagclient.HTTPBackend {
	var opts []tagclient.HTTPOption
	if a.cfg.APIKey != "" {
		opts = append(opts, tagclient.WithAPIKey(a.cfg.APIKey))
	}
	return tagclient.NewHTTPBackend(a.cfg.ServerURL, a.logger, opts...)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "toolshelfctl",
		Short:         "Admin client for the toolshelf tag service",
		Long:          `Lists, creates and reconciles tags on a running toolshelf server, and converts images to data URLs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.LoadClient()
			if cmd.Flags().Changed("url") {
				a.cfg.ServerURL = a.serverURL
			}
			if cmd.Flags().Changed("api-key") {
				a.cfg.APIKey = a.apiKey
			}
			if cmd.Flags().Changed("log-level") {
				a.cfg.LogLevel = a.logLevel
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: config.SlogLevel(a.cfg.LogLevel),
			}))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.serverURL, "url", config.DefaultServerURL, "toolshelf server base URL (env TOOLSHELF_URL)")
	root.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "API key sent as X-Api-Key (env TOOLSHELF_API_KEY)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (env TOOLSHELF_LOG_LEVEL)")

	root.AddCommand(newTagsCmd(a))
	root.AddCommand(newImageCmd(a))
	return root
}

// execute runs root and reports a failure on stderr.
func execute(root *cobra.Command) error {
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", humanError(err))
	}
	return err
}

func humanError(err error) string {
	if apperr.KindOf(err) != apperr.KindInternal {
		return apperr.Message(err)
	}
	return err.Error()
}
