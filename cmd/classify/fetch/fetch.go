package fetch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cozy-creator/classify-server/internal/app"
	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Cmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the model file without starting the server",
	RunE:  runFetch,
}

func init() {
	flags := Cmd.Flags()

	flags.String("blake3", "", "Expected blake3 checksum of the model file")
	flags.Uint64("retries", 0, "Number of download retries on transient failures")
	flags.Bool("progress", true, "Show a download progress bar")

	viper.BindPFlag("model.blake3", flags.Lookup("blake3"))
	viper.BindPFlag("model.download_retries", flags.Lookup("retries"))
	viper.BindPFlag("model.progress", flags.Lookup("progress"))
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Environment)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.FetchModel(ctx, cfg, log); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Model ready:", cfg.Model.Path())
	return nil
}
