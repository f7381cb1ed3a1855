package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/timmy/capcompare/internal/domain"
)

// Config is the static configuration for the comparison tools. Dataset
// bindings live here, not in runtime discovery: each entry ties a
// prepared comparison CSV to the model that authored its generated
// captions.
type Config struct {
	Prepare  PrepareConfig           `mapstructure:"prepare"`
	Analyze  AnalyzeConfig           `mapstructure:"analyze"`
	Datasets []domain.DatasetBinding `mapstructure:"datasets"`
}

type PrepareConfig struct {
	// Seed for placement randomization; negative means time-seeded.
	Seed int64 `mapstructure:"seed"`
	// FrameOffset is how many frames back prev_image points.
	FrameOffset int `mapstructure:"frame_offset"`
}

type AnalyzeConfig struct {
	// Responses is the path of the exported response CSV.
	Responses string `mapstructure:"responses"`
	// UnmatchedReport controls writing the unmatched-keys side file.
	UnmatchedReport bool `mapstructure:"unmatched_report"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("prepare.seed", int64(-1))
	v.SetDefault("prepare.frame_offset", 1)
	v.SetDefault("analyze.responses", "comparison_responses.csv")
	v.SetDefault("analyze.unmatched_report", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.BindEnv("prepare.seed", "PREPARE_SEED")
	v.BindEnv("analyze.responses", "ANALYZE_RESPONSES")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
