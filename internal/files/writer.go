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

package files

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/replay/model"
)

const (
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatTable = "table"
)

var accountHeaders = []string{"client", "available", "held", "total", "locked"}

// AccountWriter serializes final account states.
type AccountWriter interface {
	Write(w io.Writer, accounts []*model.Account) error
}

// NewAccountWriter returns the writer for format.
func NewAccountWriter(format string) (AccountWriter, error) {
	switch format {
	case FormatCSV, "":
		return csvAccountWriter{}, nil
	case FormatJSON:
		return jsonAccountWriter{}, nil
	case FormatTable:
		return tableAccountWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// FormatAmount renders d in plain notation with exactly the scale it carries,
// so 6333.666 - 6333.666 prints as 0.000.
func FormatAmount(d decimal.Decimal) string {
	if d.Exponent() >= 0 {
		return d.String()
	}
	return d.StringFixed(-d.Exponent())
}

func accountRecord(account *model.Account) []string {
	return []string{
		strconv.FormatUint(uint64(account.Client), 10),
		FormatAmount(account.Available),
		FormatAmount(account.Held),
		FormatAmount(account.Total),
		strconv.FormatBool(account.Locked),
	}
}

// csvAccountWriter writes nothing at all, not even the header, for zero accounts.
type csvAccountWriter struct{}

func (csvAccountWriter) Write(w io.Writer, accounts []*model.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(accountHeaders); err != nil {
		return err
	}
	for _, account := range accounts {
		if err := csvWriter.Write(accountRecord(account)); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

type accountRow struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

type jsonAccountWriter struct{}

func (jsonAccountWriter) Write(w io.Writer, accounts []*model.Account) error {
	rows := make([]accountRow, 0, len(accounts))
	for _, account := range accounts {
		rows = append(rows, accountRow{
			Client:    account.Client,
			Available: FormatAmount(account.Available),
			Held:      FormatAmount(account.Held),
			Total:     FormatAmount(account.Total),
			Locked:    account.Locked,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}

type tableAccountWriter struct{}

func (tableAccountWriter) Write(w io.Writer, accounts []*model.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(accountHeaders)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, account := range accounts {
		table.Append(accountRecord(account))
	}
	table.Render()
	return nil
}
