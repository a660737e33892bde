package serve

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cozy-creator/classify-server/internal/app"
	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Fetch and load the model, then start the HTTP server",
	RunE:  runServe,
}

func init() {
	flags := Cmd.Flags()

	flags.Int("port", config.DefaultPort, "Port to run the server on")
	flags.String("host", config.DefaultHost, "Host to run the server on")
	flags.String("environment", config.DefaultEnvironment, "Environment configuration: dev, test or prod")
	flags.String("public-dir", config.DefaultPublicDir, "Directory served under /static")
	flags.String("view-dir", config.DefaultViewDir, "Directory holding index.html")
	flags.String("onnx-library", "", "Path to the onnxruntime shared library")

	viper.BindPFlag("port", flags.Lookup("port"))
	viper.BindPFlag("host", flags.Lookup("host"))
	viper.BindPFlag("environment", flags.Lookup("environment"))
	viper.BindPFlag("public_dir", flags.Lookup("public-dir"))
	viper.BindPFlag("view_dir", flags.Lookup("view-dir"))
	viper.BindPFlag("model.onnx_library", flags.Lookup("onnx-library"))
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	app, err := app.NewApp(cfg, app.WithModel())
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}
	srv.SetupRoutes(app)

	errc := make(chan error, 1)
	go func() {
		app.Logger.Info("server started", zap.String("addr", srv.Addr()))
		errc <- srv.Start()
	}()

	signalc := make(chan os.Signal, 1)
	signal.Notify(signalc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-signalc:
		app.Logger.Info("shutting down", zap.String("signal", sig.String()))
		return srv.Stop(app.Context())
	}
}
