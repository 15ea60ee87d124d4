/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/replay/config"
)

var errMissingInput = errors.New("Please provide the CSV input filename")

// CLI wraps the root cobra command.
type CLI struct {
	cmd *cobra.Command
}

// replayInstance carries the configuration loaded in preRun to the command.
type replayInstance struct {
	cnf *config.Configuration
}

// recoverPanic turns an invariant violation inside the replay into a logged
// failure with a non-zero exit status.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration before the command runs.
func preRun(app *replayInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		logrus.SetOutput(cmd.ErrOrStderr())

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf
		return nil
	}
}

// requireInput accepts any number of arguments but the first; extra
// arguments are ignored.
func requireInput(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errMissingInput
	}
	return nil
}

// NewCLI builds the replay root command with its flags.
func NewCLI() *CLI {
	var (
		configFile string
		format     string
		sortOutput bool
	)
	app := &replayInstance{}

	rootCmd := &cobra.Command{
		Use:           "replay <transactions.csv>",
		Short:         "Replay a transaction log into client account balances",
		Long:          "Replay reads a CSV transaction log twice, applies deposits, withdrawals, disputes, resolves and chargebacks, and writes one record per client. Use - to read the log from stdin.",
		Args:          requireInput,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("format") {
				app.cnf.Output.Format = format
			}
			if cmd.Flags().Changed("sort") {
				app.cnf.Output.Sort = sortOutput
			}
			if err := app.cnf.Validate(); err != nil {
				return err
			}
			return app.run(cmd, args[0])
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./replay.json", "Configuration file")
	rootCmd.Flags().StringVar(&format, "format", config.DEFAULT_FORMAT, "Output format: csv, json or table")
	rootCmd.Flags().BoolVar(&sortOutput, "sort", false, "Order output by client id")

	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	return &CLI{cmd: rootCmd}
}

func (c CLI) executeCLI(ctx context.Context) {
	if err := c.cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	NewCLI().executeCLI(ctx)
}
