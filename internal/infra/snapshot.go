package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/finzora/signal-engine/internal/domain"
)

// SnapshotRepository loads one user's raw financial records. Implementations
// return loosely typed documents; parsing and validation happen once at the
// domain boundary, not per backend.
type SnapshotRepository interface {
	// Transactions returns the user's raw transaction documents.
	Transactions(ctx context.Context, userID string) ([]map[string]interface{}, error)

	// Budgets returns the user's raw budget documents.
	Budgets(ctx context.Context, userID string) ([]map[string]interface{}, error)

	// ManualSubscriptions returns the user's raw manually declared
	// subscription documents.
	ManualSubscriptions(ctx context.Context, userID string) ([]map[string]interface{}, error)

	// Close releases backend resources.
	Close() error
}

// Snapshot is a fully parsed view of one user's records, ready for the
// signal engines.
type Snapshot struct {
	Transactions        []domain.Transaction
	Budgets             []domain.Budget
	ManualSubscriptions []domain.ManualSubscription

	// SkippedRecords counts documents excluded at the parse boundary
	// because of missing or malformed fields.
	SkippedRecords int
}

// LoadSnapshot loads and parses everything the engines need for one user.
func LoadSnapshot(ctx context.Context, repo SnapshotRepository, userID string) (*Snapshot, error) {
	rawTxs, err := repo.Transactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("LoadSnapshot: transactions: %w", err)
	}
	rawBudgets, err := repo.Budgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("LoadSnapshot: budgets: %w", err)
	}
	rawManual, err := repo.ManualSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("LoadSnapshot: manual subscriptions: %w", err)
	}

	txs, skippedTxs, err := domain.ParseTransactions(rawTxs)
	if err != nil {
		return nil, fmt.Errorf("LoadSnapshot: %w", err)
	}
	budgets, skippedBudgets, err := domain.ParseBudgets(rawBudgets)
	if err != nil {
		return nil, fmt.Errorf("LoadSnapshot: %w", err)
	}
	manual, skippedManual, err := domain.ParseManualSubscriptions(rawManual)
	if err != nil {
		return nil, fmt.Errorf("LoadSnapshot: %w", err)
	}

	return &Snapshot{
		Transactions:        txs,
		Budgets:             budgets,
		ManualSubscriptions: manual,
		SkippedRecords:      skippedTxs + skippedBudgets + skippedManual,
	}, nil
}

// RawSnapshot is a caller-supplied snapshot in its loosely typed form, for
// example an inline request body or a local JSON file.
type RawSnapshot struct {
	Transactions        []map[string]interface{} `json:"transactions"`
	Budgets             []map[string]interface{} `json:"budgets"`
	ManualSubscriptions []map[string]interface{} `json:"manualSubscriptions"`
}

// ParseSnapshot runs a caller-supplied snapshot through the domain parse
// boundary. Absent collections count as empty.
func ParseSnapshot(raw *RawSnapshot) (*Snapshot, error) {
	txsRaw := raw.Transactions
	if txsRaw == nil {
		txsRaw = []map[string]interface{}{}
	}
	budgetsRaw := raw.Budgets
	if budgetsRaw == nil {
		budgetsRaw = []map[string]interface{}{}
	}
	manualRaw := raw.ManualSubscriptions
	if manualRaw == nil {
		manualRaw = []map[string]interface{}{}
	}

	txs, skippedTxs, err := domain.ParseTransactions(txsRaw)
	if err != nil {
		return nil, fmt.Errorf("ParseSnapshot: %w", err)
	}
	budgets, skippedBudgets, err := domain.ParseBudgets(budgetsRaw)
	if err != nil {
		return nil, fmt.Errorf("ParseSnapshot: %w", err)
	}
	manual, skippedManual, err := domain.ParseManualSubscriptions(manualRaw)
	if err != nil {
		return nil, fmt.Errorf("ParseSnapshot: %w", err)
	}

	return &Snapshot{
		Transactions:        txs,
		Budgets:             budgets,
		ManualSubscriptions: manual,
		SkippedRecords:      skippedTxs + skippedBudgets + skippedManual,
	}, nil
}

// LoadSnapshotFile reads and parses a snapshot from a local JSON file.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadSnapshotFile: %w", err)
	}
	var raw RawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("LoadSnapshotFile: %s: %w", path, err)
	}
	return ParseSnapshot(&raw)
}
