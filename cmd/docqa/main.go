package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docqa/internal/bootstrap"
	"docqa/internal/config"
	"docqa/internal/pkg/logger"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "docqa",
		Short:         "Ask questions about your documents",
		Long:          "docqa uploads documents to a question-answering service and chats about their contents.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to docqa config file (default $CONFIG_FILE or configs/docqa.toml)")

	open := func(cmd *cobra.Command) (*bootstrap.App, error) {
		return openApp(cmd.Context(), configPath)
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLoginCmd(open))
	cmd.AddCommand(newRegisterCmd(open))
	cmd.AddCommand(newLogoutCmd(open))
	cmd.AddCommand(newWhoamiCmd(open))
	cmd.AddCommand(newStatusCmd(open))
	cmd.AddCommand(newDocsCmd(open))
	cmd.AddCommand(newUploadCmd(open))
	cmd.AddCommand(newConversationsCmd(open))
	cmd.AddCommand(newAskCmd(open))
	cmd.AddCommand(newChatCmd(open))
	cmd.AddCommand(newEventsCmd(open))
	return cmd
}

// opener builds the client core for one command invocation.
type opener func(cmd *cobra.Command) (*bootstrap.App, error)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docqa %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func openApp(ctx context.Context, configPath string) (*bootstrap.App, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.NewZapLogger(cfg.Log.FilePath, cfg.Log.Level, false)
	return bootstrap.New(ctx, cfg, log)
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		printError(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
