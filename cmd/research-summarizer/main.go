// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-summarizer CLI: submit
// searches, follow jobs until their summaries are ready, request
// comparative analyses, and keep finished reports in a local archive.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-summarizer/internal/api"
	"github.com/pdiddy/research-summarizer/internal/archive"
	"github.com/pdiddy/research-summarizer/internal/devserver"
	"github.com/pdiddy/research-summarizer/internal/logging"
	"github.com/pdiddy/research-summarizer/internal/poller"
	"github.com/pdiddy/research-summarizer/internal/secrets"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// annotationInteractive marks commands that take over the terminal. Their
// logs go to a file instead of stderr.
const annotationInteractive = "interactive"

// Resolved once per invocation in PersistentPreRunE.
var (
	cfg           types.Config
	logger        = logging.Discard()
	logCloser     io.Closer
	loadedSecrets secrets.Secrets
)

// rootCmd is the base command for the research-summarizer CLI.
var rootCmd = &cobra.Command{
	Use:   "research-summarizer",
	Short: "Search research papers and read AI-generated summaries",
	Long: `research-summarizer is a terminal client for the research summarizer API.
Submit a search, follow the job while papers are retrieved and summarized,
then read the summaries and an optional comparative analysis.

Finished reports can be archived locally, searched offline, and exported
as YAML, JSON, Markdown, or HTML.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = c

		logCfg := cfg.Log
		if logCfg.File == "" && isInteractive(cmd) {
			logCfg.File = logging.DefaultFile
		}
		l, closer, err := logging.New(logCfg)
		if err != nil {
			return err
		}
		logger, logCloser = l, closer

		s, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if keys := s.Keys(); len(keys) > 0 {
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./research-summarizer.yaml or ~/.config/research-summarizer/config.yaml)")
	pf.String("api-url", "", "API base URL including the /api prefix (default "+api.DefaultBaseURL+")")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error")
	pf.String("log-file", "", "write logs to this file (interactive commands default to "+logging.DefaultFile+")")

	viper.BindPFlag("api.base_url", pf.Lookup("api-url"))
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.file", pf.Lookup("log-file"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every config key so environment variables map onto
// keys that appear in no config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", api.DefaultBaseURL)
	v.SetDefault("api.timeout", api.DefaultTimeout)
	v.SetDefault("api.user_agent", api.DefaultUserAgent)
	v.SetDefault("api.token", "")
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.requests_per_second", 0)
	v.SetDefault("poller.interval", poller.DefaultInterval)
	v.SetDefault("archive.dir", defaultArchiveDir())
	v.SetDefault("archive.max_results", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("devserver.addr", devserver.DefaultAddr)
	v.SetDefault("devserver.polls_until_complete", devserver.DefaultPollsUntilComplete)
	v.SetDefault("devserver.polls_until_analyzed", devserver.DefaultPollsUntilAnalyzed)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-summarizer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-summarizer"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_SUMMARIZER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the resolved settings.
func loadConfig() (types.Config, error) {
	var c types.Config
	if err := viper.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return c, nil
}

func defaultArchiveDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "research-summarizer", "archive")
	}
	return filepath.Join(".research-summarizer", "archive")
}

func isInteractive(cmd *cobra.Command) bool {
	if cmd.Annotations[annotationInteractive] == "true" {
		return true
	}
	watch, err := cmd.Flags().GetBool("watch")
	return err == nil && watch
}

// newClient builds the API client from the resolved config. The token from
// config or environment wins over .secrets/api-token.
func newClient() (*api.Client, error) {
	apiCfg := cfg.API
	apiCfg.Token = loadedSecrets.Get(secrets.APIToken, apiCfg.Token)
	return api.New(apiCfg, api.WithLogger(logger))
}

func openArchive() (*archive.Store, error) {
	return archive.Open(cfg.Archive)
}

func pollInterval() time.Duration {
	if cfg.Poller.Interval > 0 {
		return cfg.Poller.Interval
	}
	return poller.DefaultInterval
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
