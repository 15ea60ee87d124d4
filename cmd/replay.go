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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/replay"
	"github.com/jerry-enebeli/replay/internal/events"
	"github.com/jerry-enebeli/replay/internal/files"
)

// stdinPath selects standard input as the transaction log.
const stdinPath = "-"

// source buffers stdin, since a run reads the log twice; paths are re-opened per pass.
func (app *replayInstance) source(cmd *cobra.Command, input string) (replay.Source, error) {
	if input == stdinPath {
		return replay.NewBufferedSource("stdin", cmd.InOrStdin())
	}
	return replay.NewFileSource(input), nil
}

// run replays input and writes the final accounts to the command's stdout in
// the configured format. Snapshots are published before anything is written.
func (app *replayInstance) run(cmd *cobra.Command, input string) error {
	writer, err := files.NewAccountWriter(app.cnf.Output.Format)
	if err != nil {
		return err
	}

	src, err := app.source(cmd, input)
	if err != nil {
		return err
	}

	var opts []replay.Option
	if app.cnf.PublishingEnabled() {
		publisher := events.NewKafkaPublisher(app.cnf.Kafka.Brokers, app.cnf.Kafka.Topic, app.cnf.Kafka.Retries())
		defer publisher.Close()
		opts = append(opts, replay.WithPublisher(publisher))
	}

	result, err := replay.NewReplay(app.cnf, opts...).Run(cmd.Context(), src)
	if err != nil {
		return err
	}

	if err := writer.Write(cmd.OutOrStdout(), result.Accounts); err != nil {
		return fmt.Errorf("error writing accounts: %w", err)
	}
	return nil
}
