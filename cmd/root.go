package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bgdnvk/stackpilot/internal/aws"
	"github.com/bgdnvk/stackpilot/internal/credentials"
	"github.com/bgdnvk/stackpilot/internal/repodeploy"
)

const version = "0.1.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stackpilot",
	Short: "Deployment actions for conversational AWS automation",
	Long: `Stackpilot executes a bounded catalog of AWS deployment actions (EC2, S3,
Lambda, ECS Fargate) plus repository-to-cloud deployment workflows. It is the
action layer behind a conversational agent: requests arrive as JSON payloads,
results come back as uniform JSON envelopes.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.stackpilot.yaml)")
	rootCmd.PersistentFlags().String("region", "", "default AWS region (or set AWS_DEFAULT_REGION)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (or set LOG_LEVEL)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output")

	// TODO: add error return here
	viper.BindPFlag("aws.region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.BindEnv("aws.region", "AWS_DEFAULT_REGION")
	viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "stackpilot")
	viper.SetDefault("mongodb.collection", "aws_credentials")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".stackpilot")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("debug") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(viper.GetString("log_level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newStore() *credentials.Store {
	return credentials.NewStore(credentials.StoreConfig{
		URI:        viper.GetString("mongodb.uri"),
		Database:   viper.GetString("mongodb.database"),
		Collection: viper.GetString("mongodb.collection"),
	})
}

func newDispatcher(log *slog.Logger) *aws.Dispatcher {
	factory := aws.NewClientFactory(newStore())
	return aws.NewDispatcher(factory, log, viper.GetString("aws.region"))
}

func newDeployer(log *slog.Logger) *repodeploy.Deployer {
	return repodeploy.New(newDispatcher(log), log, viper.GetString("github.token"))
}
