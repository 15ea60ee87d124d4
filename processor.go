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
	"github.com/jerry-enebeli/replay/model"
)

// Processor owns every account of a run and the bookkeeping needed to resolve
// disputes. It is fed the full stream twice: once through Preprocess, then
// again, in the same order, through Process.
type Processor struct {
	disputedIDs map[uint32]struct{}
	retained    map[uint32]model.Transaction
	accounts    map[uint16]*model.Account
	processing  bool

	preprocessed int
	processed    int
}

// NewProcessor creates an empty processor for a single run.
func NewProcessor() *Processor {
	return &Processor{
		disputedIDs: make(map[uint32]struct{}),
		retained:    make(map[uint32]model.Transaction),
		accounts:    make(map[uint16]*model.Account),
	}
}

// Preprocess is the first pass. It records the tx id of every dispute so the
// second pass knows which deposits and withdrawals to keep.
//
// Preprocess panics with *model.InvariantViolation once Process has been called.
func (p *Processor) Preprocess(transaction model.Transaction) {
	if p.processing {
		panic(&model.InvariantViolation{
			Client: transaction.Client,
			Tx:     transaction.Tx,
			Reason: "preprocess called after processing started",
		})
	}

	p.preprocessed++
	if transaction.Type == model.Dispute {
		p.disputedIDs[transaction.Tx] = struct{}{}
	}
}

// Process is the second pass. It applies the transaction to its client's
// account, creating the account on first use, and then retains the
// transaction if it is disputable and some dispute in the stream targets it.
func (p *Processor) Process(transaction model.Transaction) {
	p.processing = true
	p.processed++

	account, ok := p.accounts[transaction.Client]
	if !ok {
		account = model.NewAccount(transaction.Client)
		p.accounts[transaction.Client] = account
	}
	account.Apply(transaction, p.retained)

	if transaction.IsDisputable() && p.isDisputed(transaction.Tx) {
		p.retained[transaction.Tx] = transaction
	}
}

// isDisputed reports whether pass one saw a dispute for tx.
func (p *Processor) isDisputed(tx uint32) bool {
	_, ok := p.disputedIDs[tx]
	return ok
}

// Accounts returns every account touched during the run, keyed by client id.
func (p *Processor) Accounts() map[uint16]*model.Account {
	return p.accounts
}

// ProcessorStats is a point-in-time summary of a processor's bookkeeping.
type ProcessorStats struct {
	Preprocessed int `json:"preprocessed"`
	Processed    int `json:"processed"`
	DisputedIDs  int `json:"disputed_ids"`
	Retained     int `json:"retained"`
	Accounts     int `json:"accounts"`
}

// Stats reports the processor's counters for the run report.
func (p *Processor) Stats() ProcessorStats {
	return ProcessorStats{
		Preprocessed: p.preprocessed,
		Processed:    p.processed,
		DisputedIDs:  len(p.disputedIDs),
		Retained:     len(p.retained),
		Accounts:     len(p.accounts),
	}
}
