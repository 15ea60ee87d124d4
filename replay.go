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

package replay

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"

	"github.com/jerry-enebeli/replay/config"
	"github.com/jerry-enebeli/replay/internal/events"
	"github.com/jerry-enebeli/replay/internal/files"
	"github.com/jerry-enebeli/replay/model"
)

// Replay rebuilds account balances from a transaction log.
type Replay struct {
	cnf       *config.Configuration
	publisher events.Publisher
	now       func() time.Time
}

// Option configures optional collaborators of a Replay.
type Option func(*Replay)

// WithPublisher makes every successful run publish one snapshot per account.
func WithPublisher(publisher events.Publisher) Option {
	return func(r *Replay) {
		r.publisher = publisher
	}
}

// NewReplay creates a Replay driven by cnf. A nil cnf leaves output unsorted.
func NewReplay(cnf *config.Configuration, opts ...Option) *Replay {
	r := &Replay{cnf: cnf, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report summarizes a run.
type Report struct {
	RunID       string         `json:"run_id"`
	Source      string         `json:"source"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Rows        files.Stats    `json:"rows"`
	Processor   ProcessorStats `json:"processor"`
	Locked      int            `json:"locked_accounts"`
	Published   int            `json:"published"`
}

// Result is the outcome of a successful run: the final state of every
// account touched, plus the run report.
type Result struct {
	Accounts []*model.Account
	Report   Report
}

// Run performs both passes over src. The first pass only collects disputed tx
// ids; the second applies every record.
func (r *Replay) Run(ctx context.Context, src Source) (*Result, error) {
	report := Report{
		RunID:     model.GenerateUUIDWithSuffix("run"),
		Source:    src.Name(),
		StartedAt: r.now(),
	}
	logger := logrus.WithFields(logrus.Fields{"run_id": report.RunID, "source": report.Source})

	processor := NewProcessor()

	if _, err := r.pass(ctx, src, processor.Preprocess); err != nil {
		return nil, fmt.Errorf("preprocessing %s: %w", src.Name(), err)
	}
	logger.Debug("preprocess pass completed")

	stats, err := r.pass(ctx, src, processor.Process)
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", src.Name(), err)
	}
	logger.Debug("process pass completed")

	accounts := r.collect(processor.Accounts())
	for _, account := range accounts {
		if account.Locked {
			report.Locked++
		}
	}
	report.Rows = stats
	report.Processor = processor.Stats()

	if r.publisher != nil {
		published, err := r.publish(ctx, report.RunID, accounts)
		report.Published = published
		if err != nil {
			return nil, fmt.Errorf("publishing snapshots: %w", err)
		}
	}

	report.CompletedAt = ptr.Time(r.now())
	logger.WithFields(logrus.Fields{
		"rows":      report.Rows.Rows,
		"skipped":   report.Rows.Skipped,
		"accounts":  len(accounts),
		"locked":    report.Locked,
		"disputed":  report.Processor.DisputedIDs,
		"retained":  report.Processor.Retained,
		"published": report.Published,
	}).Info("replay completed")

	return &Result{Accounts: accounts, Report: report}, nil
}

// pass streams every record of src into handle.
func (r *Replay) pass(ctx context.Context, src Source, handle files.HandlerFunc) (files.Stats, error) {
	reader, err := src.Open()
	if err != nil {
		return files.Stats{}, err
	}
	defer reader.Close()

	return files.ReadTransactions(ctx, reader, handle)
}

// collect flattens the account map, ordering by client id when configured.
func (r *Replay) collect(byClient map[uint16]*model.Account) []*model.Account {
	accounts := make([]*model.Account, 0, len(byClient))
	for _, account := range byClient {
		accounts = append(accounts, account)
	}
	if r.cnf != nil && r.cnf.Output.Sort {
		sort.Slice(accounts, func(i, j int) bool {
			return accounts[i].Client < accounts[j].Client
		})
	}
	return accounts
}

// publish sends one snapshot per account, keyed by client id, and returns how
// many were sent before the first failure.
func (r *Replay) publish(ctx context.Context, runID string, accounts []*model.Account) (int, error) {
	at := r.now()
	for i, account := range accounts {
		event := account.Snapshot(runID, at)
		if err := r.publisher.Publish(ctx, strconv.FormatUint(uint64(account.Client), 10), event); err != nil {
			return i, err
		}
	}
	return len(accounts), nil
}
