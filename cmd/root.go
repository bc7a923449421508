package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	consts "github.com/khanhnv2901/seca-pqc/internal/shared/constants"
)

const envPrefix = "SECA_PQC"

var cfgFile string
var logger *zap.SugaredLogger
var operator string
var resultsDir string

// AppContext carries the state shared by every subcommand.
type AppContext struct {
	Logger     *zap.SugaredLogger
	Operator   string
	ResultsDir string
	Config     *CLIConfig
}

type appContextKey struct{}

var globalAppContext *AppContext

var rootCmd = &cobra.Command{
	Use:           "seca-pqc",
	Short:         "Post-quantum TLS readiness scanner",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".seca-pqc")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix(envPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		_ = viper.ReadInConfig()
		resultsDir = viper.GetString("results_dir")
		if resultsDir == "" {
			dir, err := getResultsDir()
			if err != nil {
				return err
			}
			resultsDir = dir
		}

		if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
			return fmt.Errorf("failed to create results directory: %w", err)
		}

		l, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l.Sugar()

		if operator == "" {
			operator = detectOperatorFromEnv()
		}

		if abs, err := filepath.Abs(resultsDir); err == nil {
			resultsDir = abs
		}

		applyConfigDefaults(cmd)

		storeAppContext(cmd, &AppContext{
			Logger:     logger,
			Operator:   operator,
			ResultsDir: resultsDir,
			Config:     cliConfig,
		})

		logger.Debugw("initialized", "operator", operator, "results_dir", resultsDir)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", colorError("error:"), err)
		os.Exit(1)
	}
}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil && cmd.Context() != nil {
		if appCtx, ok := cmd.Context().Value(appContextKey{}).(*AppContext); ok && appCtx != nil {
			return appCtx
		}
	}
	if globalAppContext != nil {
		return globalAppContext
	}
	return &AppContext{
		Logger:     zap.NewNop().Sugar(),
		Operator:   detectOperatorFromEnv(),
		ResultsDir: "./results",
		Config:     cliConfig,
	}
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// zapLogger returns the desugared logger handed to internal packages.
func (a *AppContext) zapLogger() *zap.Logger {
	if a == nil || a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger.Desugar()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seca-pqc.yaml)")

	defaultOperator := os.Getenv("USER")
	rootCmd.PersistentFlags().StringVarP(&operator, "operator", "o", defaultOperator, "operator name (or set via USER env)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}
