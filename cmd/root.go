package cmd

import (
	"errors"
	"os"

	"vpnbot/common"

	"github.com/spf13/cobra"
)

// Version задается при сборке через -ldflags "-X vpnbot/cmd.Version=..."
var Version = "dev"

var envFile string

var rootCmd = &cobra.Command{
	Use:   "vpnbot",
	Short: "VPN subscription bot and admin API for the 3x-ui panel",
	Long: `vpnbot sells and provisions VPN access through a Telegram bot and an admin HTTP API.
Clients are created in a 3x-ui panel.

Configuration comes from environment variables and an optional .env file
(ENV_FILE or --env-file selects another one).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute запускает корневую команду
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to the .env file (overrides ENV_FILE)")
}

// ExitError ошибка команды с явным кодом выхода
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// configError помечает ошибку конфигурации кодом выхода 2
func configError(err error) error {
	return &ExitError{Code: 2, Err: err}
}

// ExitCode возвращает код выхода для ошибки команды
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// loadConfig читает конфигурацию и настраивает логгер
func loadConfig() (*common.Config, error) {
	if envFile != "" {
		os.Setenv("ENV_FILE", envFile)
	}
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, err
	}
	common.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}
