package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/dmorgan81/sdxlgen/internal/handler"
	"github.com/dmorgan81/sdxlgen/internal/history"
	"github.com/dmorgan81/sdxlgen/internal/image"
	"github.com/dmorgan81/sdxlgen/internal/inject"
	"github.com/dmorgan81/sdxlgen/internal/log"
	"github.com/dmorgan81/sdxlgen/internal/server"
	"github.com/dmorgan81/sdxlgen/internal/session"
	"github.com/dmorgan81/sdxlgen/internal/store"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

func setup(cmd *cobra.Command, cfg inject.Config) (context.Context, *do.Injector) {
	ctx := log.NewContext(cmd.Context(), log.New(cmd.ErrOrStderr(), log.ParseLevel(cfg.LogLevel)))
	return ctx, inject.Setup(ctx, cfg)
}

// startup resolves the credential and loads history before any request is
// accepted.
func startup(ctx context.Context, injector *do.Injector) error {
	if _, err := do.Invoke[image.Generator](injector); err != nil {
		return err
	}
	do.MustInvoke[*history.Store](injector).Load(ctx)
	return nil
}

func NewCLI() *cobra.Command {
	cfg := inject.ConfigFromEnv()

	rootCmd := &cobra.Command{
		Use:   "sdxlgen",
		Short: "Generate images from text prompts with Stable Diffusion XL",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfg.HistoryFile, "history-file", cfg.HistoryFile, "File holding recent prompts and images")
	rootCmd.PersistentFlags().StringVar(&cfg.HistoryBucket, "history-bucket", cfg.HistoryBucket, "S3 bucket holding recent prompts and images")
	rootCmd.PersistentFlags().BoolVar(&cfg.Ephemeral, "ephemeral", false, "Keep history in memory only")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Serve the image generator page",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			ctx, injector := setup(cmd, cfg)
			defer func() { _ = injector.Shutdown() }()

			if err := startup(ctx, injector); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return do.MustInvoke[*server.Server](injector).Serve(ctx, addr)
		},
	}
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")

	generateCmd := &cobra.Command{
		Use:   "generate PROMPT",
		Short: "Generate one image and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			bucket, _ := cmd.Flags().GetString("bucket")
			if bucket != "" {
				cfg.OutputBucket = bucket
			}

			ctx, injector := setup(cmd, cfg)
			defer func() { _ = injector.Shutdown() }()

			if err := startup(ctx, injector); err != nil {
				return err
			}

			img, err := do.MustInvoke[*session.Session](injector).Submit(ctx, args[0])
			if err != nil {
				if msg := image.Message(err); msg != "" {
					return errors.New(msg)
				}
				return err
			}

			data, err := img.PNG()
			if err != nil {
				return err
			}

			uploader, err := do.InvokeNamed[store.Uploader](injector, "output")
			if err != nil {
				uploader = &store.FileUploader{}
			}
			if err := uploader.Upload(ctx, store.UploadParams{
				Name:        out,
				Data:        data,
				ContentType: "image/png",
				Metadata:    map[string]string{"prompt": img.Prompt},
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	generateCmd.Flags().StringP("out", "o", "generated-image.png", "Where to save the image")
	generateCmd.Flags().String("bucket", "", "Save the image to this S3 bucket instead of a local file")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, injector := setup(cmd, cfg)
			defer func() { _ = injector.Shutdown() }()

			recent := do.MustInvoke[*history.Store](injector)
			recent.Load(ctx)
			for _, p := range recent.Prompts() {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	lambdaCmd := &cobra.Command{
		Use:   "lambda",
		Short: "Run as an AWS Lambda function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, injector := setup(cmd, cfg)
			h, err := do.Invoke[*handler.Handler](injector)
			if err != nil {
				return err
			}
			lambda.StartWithOptions(h.Handle, lambda.WithContext(ctx), lambda.WithEnableSIGTERM(func() {
				_ = injector.Shutdown()
			}))
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd,
		generateCmd,
		historyCmd,
		lambdaCmd,
	)

	return rootCmd
}
