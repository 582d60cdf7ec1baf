package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"booru-dl/internal/config"
	"booru-dl/internal/httpclient"
	"booru-dl/internal/model"
)

var (
	cfgFile          string
	logLevel         string
	logFormat        string
	logAPIFlag       bool
	outputFlag       string
	concurrencyFlag  int
	safeModeFlag     bool
	disableBlacklist bool
	updateFlag       bool
	cbzFlag          bool
	annotateFlag     bool
	siteFlag         string
	limitFlag        int
	startPageFlag    int

	globalConfig config.Config
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "boorudl",
	Short: "A bulk downloader for booru-style imageboard sites",
	Long: `boorudl fetches posts from Danbooru, e621, Gelbooru, Rule34,
Konachan and Realbooru by tag search, post id, or pool id, filtering
against a blacklist and safe-mode rating gate before committing them to
disk or a single CBZ archive.`,
	PersistentPreRunE: initRun,
}

// Execute adds all child commands and runs rootCmd. Called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.toml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Logging format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&logAPIFlag, "log-api", false, "Log API requests/responses to api.log")

	rootCmd.PersistentFlags().StringVarP(&siteFlag, "imageboard", "i", "danbooru", "Target site: danbooru, e621, gelbooru, rule34, konachan, realbooru")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "Output directory (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&concurrencyFlag, "simultaneous", "d", 0, "Concurrent downloads (overrides config, 0 uses config default)")
	rootCmd.PersistentFlags().IntVarP(&limitFlag, "limit", "l", 0, "Maximum posts to download (0 = unlimited)")
	rootCmd.PersistentFlags().IntVarP(&startPageFlag, "start-page", "s", 0, "Page to begin search pagination from (0 = site default)")
	rootCmd.PersistentFlags().BoolVar(&safeModeFlag, "safe-mode", false, "Only accept posts rated safe")
	rootCmd.PersistentFlags().BoolVar(&disableBlacklist, "disable-blacklist", false, "Ignore blacklist.toml for this run")
	rootCmd.PersistentFlags().BoolVar(&updateFlag, "update", false, "Resume from the last run's checkpoint, stopping at its highest post id")
	rootCmd.PersistentFlags().BoolVar(&cbzFlag, "cbz", false, "Write posts into a single CBZ archive instead of loose files")
	rootCmd.PersistentFlags().BoolVar(&annotateFlag, "annotate", false, "Index committed posts into a local search index (ignored with --cbz)")

	viper.BindPFlag("output_dir", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("concurrency", rootCmd.PersistentFlags().Lookup("simultaneous"))
	viper.BindPFlag("safe_mode", rootCmd.PersistentFlags().Lookup("safe-mode"))
	viper.BindPFlag("disable_blacklist", rootCmd.PersistentFlags().Lookup("disable-blacklist"))
	viper.BindPFlag("update", rootCmd.PersistentFlags().Lookup("update"))
	viper.BindPFlag("cbz", rootCmd.PersistentFlags().Lookup("cbz"))
	viper.BindPFlag("log_api", rootCmd.PersistentFlags().Lookup("log-api"))

	rootCmd.AddCommand(searchCmd, postCmd, poolCmd)
}

// initRun loads config.toml (flag > file > default), applies CLI
// overrides via viper, and configures logrus, mirroring the teacher's
// loadGlobalConfig warn-and-continue posture on optional files.
func initRun(cmd *cobra.Command, args []string) error {
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.WithError(err).Warnf("error reading config file %s", cfgFile)
		}
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	globalConfig = cfg

	if viper.IsSet("output_dir") && viper.GetString("output_dir") != "" {
		globalConfig.OutputDir = viper.GetString("output_dir")
	}
	if viper.IsSet("concurrency") && viper.GetInt("concurrency") > 0 {
		globalConfig.Concurrency = viper.GetInt("concurrency")
	}
	if viper.GetBool("safe_mode") {
		globalConfig.SafeMode = true
	}
	if viper.GetBool("disable_blacklist") {
		globalConfig.DisableBlacklist = true
	}
	if viper.GetBool("update") {
		globalConfig.Update = true
	}
	if viper.GetBool("cbz") {
		globalConfig.CBZ = true
	}
	if viper.GetBool("log_api") {
		globalConfig.LogAPI = true
	}
	if logLevel != "" {
		globalConfig.LogLevel = logLevel
	}
	if logFormat != "" {
		globalConfig.LogFormat = logFormat
	}

	initLogging()
	return nil
}

func initLogging() {
	level, err := log.ParseLevel(globalConfig.LogLevel)
	if err != nil {
		log.WithError(err).Warnf("invalid log level %q, using info", globalConfig.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	switch globalConfig.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// resolveSite parses --imageboard into a model.Site, erroring for an
// unrecognized name rather than silently defaulting.
func resolveSite() (model.Site, error) {
	site, ok := model.ParseSite(siteFlag)
	if !ok {
		return 0, fmt.Errorf("%w: unknown imageboard %q", model.ErrConfig, siteFlag)
	}
	return site, nil
}

func outputDir() string {
	if globalConfig.OutputDir != "" {
		return globalConfig.OutputDir
	}
	return "./downloads"
}

func runConcurrency() int {
	if globalConfig.Concurrency > 0 {
		return globalConfig.Concurrency
	}
	return 5
}

func apiLogPath() string {
	if !globalConfig.LogAPI {
		return ""
	}
	return filepath.Join(outputDir(), "api.log")
}

func newHTTPClient() (*http.Client, error) {
	return httpclient.New(apiLogPath())
}

// loadBlacklistAndAuth reads blacklist.toml and the auth file from the
// XDG config directory, creating either with empty defaults on first
// run per spec.md §6.
func loadBlacklistAndAuth() (model.Blacklist, map[model.Site]model.Credential, error) {
	dir, err := config.DefaultConfigDir()
	if err != nil {
		return model.Blacklist{}, nil, err
	}

	bl, err := config.LoadBlacklist(filepath.Join(dir, "blacklist.toml"))
	if err != nil {
		return model.Blacklist{}, nil, err
	}
	creds, err := config.LoadAuth(filepath.Join(dir, "auth.toml"))
	if err != nil {
		return model.Blacklist{}, nil, err
	}
	return bl, creds, nil
}
