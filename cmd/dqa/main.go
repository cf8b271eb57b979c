// Copyright 2025 The DBQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	v        *viper.Viper
	settings *Settings
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var settingsFile string

	rootCmd := &cobra.Command{
		Use:           "dqa",
		Short:         "Config-driven data quality checks for tabular datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(a.v, settingsFile)
			if err != nil {
				return err
			}
			logger, err := newLogger(settings.Log)
			if err != nil {
				return err
			}
			a.settings = settings
			a.logger = logger
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&settingsFile, "settings", "s", "", "Settings file (yaml, json or toml)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("data-dir", "data", "Directory holding dataset files")
	flags.String("config-dir", "configs", "Directory holding per-dataset configs")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("data_source.data_dir", flags.Lookup("data-dir"))
	_ = a.v.BindPFlag("config_dir", flags.Lookup("config-dir"))

	rootCmd.AddCommand(
		newGenerateConfigCmd(a),
		newValidateCmd(a),
		newProfileCmd(a),
		newPingCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
