package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cozy-creator/classify-server/internal/utils/pathutil"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "CLASSIFY"

type Config struct {
	Port        int              `mapstructure:"port"`
	Host        string           `mapstructure:"host"`
	Environment string           `mapstructure:"environment"`
	PublicDir   string           `mapstructure:"public_dir"`
	ViewDir     string           `mapstructure:"view_dir"`
	Model       *ModelConfig     `mapstructure:"model"`
	S3          *S3Config        `mapstructure:"s3"`
	Inference   *InferenceConfig `mapstructure:"inference"`
}

type ModelConfig struct {
	URL             string    `mapstructure:"url"`
	FileName        string    `mapstructure:"file_name"`
	Dir             string    `mapstructure:"dir"`
	Labels          []string  `mapstructure:"labels"`
	ImageSize       int       `mapstructure:"image_size"`
	InputName       string    `mapstructure:"input_name"`
	OutputName      string    `mapstructure:"output_name"`
	Mean            []float64 `mapstructure:"mean"`
	Std             []float64 `mapstructure:"std"`
	Softmax         bool      `mapstructure:"softmax"`
	OnnxLibrary     string    `mapstructure:"onnx_library"`
	Blake3          string    `mapstructure:"blake3"`
	DownloadRetries uint64    `mapstructure:"download_retries"`
	Progress        bool      `mapstructure:"progress"`
}

// Path is where the model artifact lives on disk.
func (m *ModelConfig) Path() string {
	return filepath.Join(m.Dir, m.FileName)
}

type S3Config struct {
	Region      string `mapstructure:"region_name"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	EndpointUrl string `mapstructure:"endpoint_url"`
}

type InferenceConfig struct {
	TopN int `mapstructure:"top_n"`
}

var config *Config

// SetDefaults registers every known key so that env overrides are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("environment", DefaultEnvironment)
	v.SetDefault("public_dir", DefaultPublicDir)
	v.SetDefault("view_dir", DefaultViewDir)

	v.SetDefault("model.url", DefaultModelURL)
	v.SetDefault("model.file_name", DefaultModelFileName)
	v.SetDefault("model.dir", DefaultModelDir)
	v.SetDefault("model.labels", DefaultLabels)
	v.SetDefault("model.image_size", DefaultImageSize)
	v.SetDefault("model.input_name", DefaultInputName)
	v.SetDefault("model.output_name", DefaultOutputName)
	v.SetDefault("model.mean", DefaultMean)
	v.SetDefault("model.std", DefaultStd)
	v.SetDefault("model.softmax", true)
	v.SetDefault("model.onnx_library", "")
	v.SetDefault("model.blake3", "")
	v.SetDefault("model.download_retries", 0)
	v.SetDefault("model.progress", true)

	v.SetDefault("s3.region_name", "auto")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.endpoint_url", "")

	v.SetDefault("inference.top_n", DefaultTopN)
}

// Load reads the optional env and config files referenced by v, then
// unmarshals every known key into a Config.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(`-`, `_`, `.`, `_`))
	v.AutomaticEnv()

	if envFile := v.GetString("env_file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	if configFile := v.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvAndConfigFiles loads the process-wide config from the global viper instance.
func LoadEnvAndConfigFiles() error {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		return err
	}

	config = cfg
	return nil
}

func GetConfig() (*Config, error) {
	if config == nil {
		return nil, ErrConfigNotLoaded
	}

	return config, nil
}

func MustGetConfig() *Config {
	cfg, err := GetConfig()
	if err != nil {
		panic(err)
	}

	return cfg
}

func (c *Config) finalize() error {
	var err error
	if c.PublicDir, err = pathutil.ExpandPath(c.PublicDir); err != nil {
		return fmt.Errorf("failed to expand public dir: %w", err)
	}
	if c.ViewDir, err = pathutil.ExpandPath(c.ViewDir); err != nil {
		return fmt.Errorf("failed to expand view dir: %w", err)
	}
	if c.Model.Dir, err = pathutil.ExpandPath(c.Model.Dir); err != nil {
		return fmt.Errorf("failed to expand model dir: %w", err)
	}

	if len(c.Model.Labels) == 0 {
		return ErrNoLabels
	}
	if len(c.Model.Mean) != 3 || len(c.Model.Std) != 3 {
		return ErrBadChannelStats
	}

	if c.Inference.TopN <= 0 || c.Inference.TopN > len(c.Model.Labels) {
		c.Inference.TopN = len(c.Model.Labels)
	}

	return nil
}
