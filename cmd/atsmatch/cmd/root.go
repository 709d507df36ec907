package cmd

import (
	"fmt"
	"os"

	"ats-match-go/internal/config"
	"ats-match-go/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "atsmatch",
	Short:         "Resume and job description matching engine",
	Long:          "Score a resume against a job description and inspect the keyword lexicon.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env 不存在时忽略
		_ = godotenv.Load()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

// loadConfig 未指定 --config 时使用内置默认配置
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath == "" {
		cfg = config.Default()
	} else if cfg, err = config.LoadConfig(configPath); err != nil {
		return nil, err
	}

	// CLI 默认只输出警告，避免日志混入 JSON 结果
	logCfg := logger.Config(cfg.Logger)
	if logCfg.Level == "" || logCfg.Level == "info" || logCfg.Level == "debug" {
		logCfg.Level = "warn"
	}
	if _, err := logger.Init(logCfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (defaults to built-in settings)")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(lexiconCmd)
}
