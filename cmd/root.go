// Package cmd provides the command-line interface of vuedts.
//
// Configuration is read from several sources with clear precedence:
//
//  1. Command-line flags (--log-level, --concurrency, ...) - highest priority
//  2. Environment variables (VUEDTS_LOG_LEVEL, VUEDTS_WATCH_DEBOUNCE, ...)
//  3. The settings file (--settings, VUEDTS_CONFIG_FILE or .vuedts.yml)
//  4. Built-in defaults - lowest priority
//
// Compiler options always come from tsconfig.json: either the file passed
// with -c/--config or the nearest one above the directories being processed.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/vuedts/internal/config"
	vuedtserrors "github.com/conneroisu/vuedts/internal/errors"
)

// Exit statuses returned by ExitCode.
const (
	ExitOK          = 0
	ExitEmitFailed  = 1
	ExitConfigError = 2
	ExitRunFailed   = 3
)

var (
	settingsFile string
	tsconfigFile string
	watchMode    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vuedts <directory...>",
	Short: "Generate TypeScript declaration files for .vue components",
	Long: `vuedts type-checks the script blocks of .vue single-file components with the
TypeScript compiler and writes a declaration file next to each component
(Button.vue -> Button.vue.d.ts).

Every argument is a directory (or a .vue file); all .vue files beneath the
directories are processed. Components with type errors are reported and
no declaration is written for them.

Examples:
  vuedts src                        Generate declarations once
  vuedts -w src                     Keep declarations up to date
  vuedts -c tsconfig.build.json src Use a specific tsconfig.json
  vuedts list src -o json           Show the components that would be processed`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		if watchMode {
			return runWatch(cmd, args)
		}
		return runGenerate(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// ExitCode maps an error returned by Execute to a process exit status.
// Components that failed to emit give ExitEmitFailed, invalid settings or
// tsconfig.json give ExitConfigError, and anything that stopped the run
// early gives ExitRunFailed.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case vuedtserrors.IsBuildError(err):
		return ExitEmitFailed
	case vuedtserrors.IsConfigError(err):
		return ExitConfigError
	default:
		return ExitRunFailed
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&settingsFile, "settings", "", "settings file (default is .vuedts.yml, can also use VUEDTS_CONFIG_FILE env var)")
	flags.StringVarP(&tsconfigFile, "config", "c", "", "path of the tsconfig.json to use")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Int("concurrency", 8, "number of components emitted at once")
	flags.String("tsc", "", "TypeScript compiler executable (default: node_modules/.bin/tsc, then tsc from PATH)")

	_ = viper.BindPFlag(config.KeyTSConfig, flags.Lookup("config"))
	_ = viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = viper.BindPFlag(config.KeyConcurrency, flags.Lookup("concurrency"))
	_ = viper.BindPFlag(config.KeyEngineCommand, flags.Lookup("tsc"))

	rootCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "watch file changes")
}

// initConfig selects the settings file and enables environment overrides.
// A missing default settings file is fine; a broken one is reported when a
// command loads the configuration.
func initConfig() {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	config.Setup(viper.GetViper(), settingsFile, wd, os.LookupEnv)
}
