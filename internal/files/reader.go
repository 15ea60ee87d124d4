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
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/replay/model"
)

const (
	columnType   = "type"
	columnClient = "client"
	columnTx     = "tx"
	columnAmount = "amount"
)

var requiredColumns = []string{columnType, columnClient, columnTx}

// HandlerFunc receives every well-formed transaction in stream order.
type HandlerFunc func(model.Transaction)

// Stats counts the data rows seen by ReadTransactions. The header row is not
// counted.
type Stats struct {
	Rows     int `json:"rows"`
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
}

// ReadTransactions parses a CSV transaction log and calls handle for every row
// that parses. Malformed rows are skipped and only logged; the returned error
// is reserved for failures of the underlying reader and context cancellation.
func ReadTransactions(ctx context.Context, reader io.Reader, handle HandlerFunc) (Stats, error) {
	var stats Stats

	csvReader := csv.NewReader(bufio.NewReader(reader))
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	headers, err := csvReader.Read()
	if err == io.EOF {
		return stats, nil
	}
	if err != nil && !isParseError(err) {
		return stats, fmt.Errorf("error reading CSV headers: %w", err)
	}

	columnMap, headerErr := createColumnMap(headers)
	if headerErr != nil {
		logrus.WithError(headerErr).Debug("every row will be skipped")
	}

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		stats.Rows++

		if stats.Rows%1000 == 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			default:
			}
		}

		if err != nil {
			if !isParseError(err) {
				return stats, fmt.Errorf("error reading row %d: %w", stats.Rows, err)
			}
			skipRow(&stats, err)
			continue
		}
		if headerErr != nil {
			skipRow(&stats, headerErr)
			continue
		}

		transaction, err := parseTransaction(record, columnMap)
		if err != nil {
			skipRow(&stats, fmt.Errorf("row %d: %w", stats.Rows, err))
			continue
		}

		stats.Accepted++
		handle(transaction)
	}

	return stats, nil
}

func isParseError(err error) bool {
	var parseErr *csv.ParseError
	return errors.As(err, &parseErr)
}

func skipRow(stats *Stats, reason error) {
	stats.Skipped++
	logrus.WithField("reason", reason.Error()).Debug("skipping malformed transaction row")
}

// createColumnMap maps lower-cased, trimmed header names to their index.
func createColumnMap(headers []string) (map[string]int, error) {
	columnMap := make(map[string]int, len(headers))
	for i, header := range headers {
		columnMap[strings.ToLower(strings.TrimSpace(header))] = i
	}

	for _, col := range requiredColumns {
		if _, exists := columnMap[col]; !exists {
			return nil, fmt.Errorf("required column '%s' not found in CSV", col)
		}
	}
	return columnMap, nil
}

func parseTransaction(record []string, columnMap map[string]int) (model.Transaction, error) {
	var transaction model.Transaction

	field := func(name string) (string, bool) {
		i, ok := columnMap[name]
		if !ok || i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	for _, col := range requiredColumns {
		if _, ok := field(col); !ok {
			return transaction, fmt.Errorf("missing %s field", col)
		}
	}

	rawType, _ := field(columnType)
	transactionType, err := model.ParseTransactionType(rawType)
	if err != nil {
		return transaction, err
	}

	rawClient, _ := field(columnClient)
	client, err := strconv.ParseUint(rawClient, 10, 16)
	if err != nil {
		return transaction, fmt.Errorf("invalid client %q: %w", rawClient, err)
	}

	rawTx, _ := field(columnTx)
	tx, err := strconv.ParseUint(rawTx, 10, 32)
	if err != nil {
		return transaction, fmt.Errorf("invalid tx %q: %w", rawTx, err)
	}

	transaction.Type = transactionType
	transaction.Client = uint16(client)
	transaction.Tx = uint32(tx)

	if rawAmount, ok := field(columnAmount); ok && rawAmount != "" {
		// Amounts are plain decimals only. An exponent such as 1e2000000000
		// would be expanded to billions of digits on the first addition.
		if strings.ContainsAny(rawAmount, "eE") {
			return transaction, fmt.Errorf("invalid amount %q: exponent notation is not accepted", rawAmount)
		}
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return transaction, fmt.Errorf("invalid amount %q: %w", rawAmount, err)
		}
		transaction.Amount = decimal.NewNullDecimal(amount)
	}

	return transaction, nil
}
