package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a UUID prefixed with the given module name,
// e.g. "run_3f0c...".
func GenerateUUIDWithSuffix(module string) string {
	return fmt.Sprintf("%s_%s", module, uuid.New().String())
}

// AccountSnapshotEvent is published once per account after a replay.
type AccountSnapshotEvent struct {
	RunID      string          `json:"run_id"`
	Client     uint16          `json:"client"`
	Available  decimal.Decimal `json:"available"`
	Held       decimal.Decimal `json:"held"`
	Total      decimal.Decimal `json:"total"`
	Locked     bool            `json:"locked"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Snapshot copies the account into an event stamped with runID and at.
func (account *Account) Snapshot(runID string, at time.Time) AccountSnapshotEvent {
	return AccountSnapshotEvent{
		RunID:      runID,
		Client:     account.Client,
		Available:  account.Available,
		Held:       account.Held,
		Total:      account.Total,
		Locked:     account.Locked,
		OccurredAt: at,
	}
}
