package cmd

import (
	"fmt"
	"os"
	"strings"

	fetch "github.com/cozy-creator/classify-server/cmd/classify/fetch"
	serve "github.com/cozy-creator/classify-server/cmd/classify/serve"
	"github.com/cozy-creator/classify-server/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Cmd = &cobra.Command{
	Use:   "classify",
	Short: "Image classification server",
	Long:  "Serves a landing page and an /analyze endpoint that ranks an uploaded image against the model's labels",

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetEnvPrefix(config.EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(
			`-`, `_`, // convert hyphens to underscores
			`.`, `_`, // convert dots to underscores
		))
		viper.AutomaticEnv()

		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		return config.LoadEnvAndConfigFiles()
	},
}

func Execute() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := Cmd.PersistentFlags()

	pflags.String("config-file", "", "Path to the config file")
	pflags.String("env-file", "", "Path to the env file")
	pflags.String("model-url", config.DefaultModelURL, "Where to download the model from: http(s):// or s3://bucket/key")
	pflags.String("model-dir", config.DefaultModelDir, "Directory the model file is stored in")

	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))
	viper.BindPFlag("model.url", pflags.Lookup("model-url"))
	viper.BindPFlag("model.dir", pflags.Lookup("model-dir"))

	Cmd.AddCommand(serve.Cmd, fetch.Cmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}
