package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pavelc4/aether-ddl-bot/config"
	"github.com/pavelc4/aether-ddl-bot/internal/app"
	"github.com/pavelc4/aether-ddl-bot/internal/transfer"
	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	run := &cobra.Command{
		Use:   "run",
		Short: "Start the Telegram bot",
		RunE:  runBot,
	}

	root := &cobra.Command{
		Use:           "aether",
		Short:         "Telegram bot that mirrors local files and folders to StreamTape",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBot,
	}
	root.AddCommand(run, newUploadCmd(), newAccountCmd())
	return root
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer a.Close()

	logger.Info("Starting bot")
	if err := a.Start(cmd.Context()); err != nil {
		return fmt.Errorf("bot stopped: %w", err)
	}
	logger.Info("Shutting down")
	return nil
}

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file or folder and print its link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger.SetLevel(cfg.LogLevel)

			out := cmd.ErrOrStderr()
			hc := app.NewHTTPClient()
			uploader := transfer.NewUploader(hc, &transfer.Hook{
				OnStart: func(name string, total int64) {
					fmt.Fprintf(out, "uploading %s (%s)\n", name, humanize.Bytes(uint64(total)))
				},
				OnDone: func(name string, total int64, _ time.Duration) {
					fmt.Fprintf(out, "done %s\n", name)
				},
			})
			client, err := app.NewStreamtapeFactory(cfg, hc, app.NewPublisher(cfg))(uploader)
			if err != nil {
				return err
			}
			defer client.Close()

			link, err := client.Upload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if link != "" {
				fmt.Fprintln(cmd.OutOrStdout(), link)
			}
			return nil
		},
	}
}

func newAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the StreamTape account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			client, err := app.NewStreamtapeFactory(cfg, app.NewHTTPClient(), nil)(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			info, err := client.GetAccountInfo(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API ID:  %s\nEmail:   %s\nSince:   %s\n", info.APIID, info.Email, info.SignupAt)
			return nil
		},
	}
}
