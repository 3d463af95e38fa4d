// Package cli defines the cobra commands for agent-chat.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"agent-chat/internal/agent"
	"agent-chat/internal/chat"
	"agent-chat/internal/config"
	"agent-chat/internal/export"
	"agent-chat/internal/journal"
	"agent-chat/internal/logging"
	"agent-chat/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var version = "dev" // set via ldflags at build time

var rootCmd = &cobra.Command{
	Use:   "agent-chat",
	Short: "Chat with a remote agent from the terminal",
	Long: `agent-chat sends each message you type to an HTTP agent endpoint
and shows the conversation turn by turn. When stdout is not a terminal
it reads one message per line from stdin instead.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runChat,
}

// Execute runs the root command. Called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(failuresCmd)
	rootCmd.AddCommand(configCmd)
}

// IsTTY reports whether both ends of the session are attached to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

func loadConfig(cmd *cobra.Command) (config.AppConfig, error) {
	return config.Load(viper.New(), cmd.Flags())
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := agent.NewClient(cfg.Endpoint, agent.NewHTTPClient(cfg.RequestTimeout))
	if err != nil {
		return err
	}

	reporters := chat.Reporters{logging.NewSink(logger)}
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			logger.Warn("failure journal disabled", zap.String("path", cfg.Journal.Path), zap.Error(err))
		} else {
			defer j.Close()
			reporters = append(reporters, j)
		}
	}

	session := chat.NewSession()
	ctrl := chat.NewController(session, client, reporters)
	labels := export.Labels{User: cfg.UI.UserLabel, Assistant: cfg.UI.AgentLabel}

	plain := cfg.Plain || !IsTTY()
	logger.Info("session started",
		zap.String("session", session.ID()),
		zap.String("endpoint", client.Endpoint()),
		zap.Bool("plain", plain),
		zap.Duration("request_timeout", cfg.RequestTimeout),
	)
	defer func() {
		logger.Info("session ended", zap.String("session", session.ID()), zap.Int("messages", session.Len()))
	}()

	if plain {
		return ui.RunPlain(cmd.Context(), ctrl, cmd.InOrStdin(), cmd.OutOrStdout(), labels)
	}

	exp, err := export.New(cfg.ExportDir, labels)
	if err != nil {
		return err
	}
	p := tea.NewProgram(ui.NewModel(cfg, ctrl, exp), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
