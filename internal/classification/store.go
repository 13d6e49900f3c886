// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package classification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cobaltcore-dev/flavor-matcher/internal/db"
	"github.com/cobaltcore-dev/flavor-matcher/internal/machine"
)

// Row of the decision history table.
type decisionRow struct {
	ID          string `db:"id"`
	Source      string `db:"source"`
	MemoryMB    int    `db:"memory_mb"`
	CPU         string `db:"cpu"`
	DiskGB      int    `db:"disk_gb"`
	Model       string `db:"model"`
	Eligible    string `db:"eligible"`
	Flavor      string `db:"flavor"`
	Classified  bool   `db:"classified"`
	FlavorCount int    `db:"flavor_count"`
	CreatedAt   int64  `db:"created_at"`
}

func (decisionRow) TableName() string { return "flavor_matcher_decisions" }

// History of classification decisions in the database.
type Store struct {
	db *db.DB
}

// Create the store and its table if it does not exist yet.
func NewStore(d *db.DB) (*Store, error) {
	table := d.AddTable(decisionRow{}).SetKeys(false, "id")
	if err := d.CreateTable(table); err != nil {
		return nil, err
	}
	return &Store{db: d}, nil
}

// Persist the decision.
func (s *Store) Record(ctx context.Context, d Decision) error {
	eligible, err := json.Marshal(d.Eligible)
	if err != nil {
		return err
	}
	row := &decisionRow{
		ID:          d.ID,
		Source:      d.Source,
		MemoryMB:    d.Machine.MemoryMB,
		CPU:         d.Machine.CPU,
		DiskGB:      d.Machine.DiskGB,
		Model:       d.Machine.Model,
		Eligible:    string(eligible),
		Flavor:      d.Flavor,
		Classified:  d.Classified,
		FlavorCount: d.FlavorCount,
		CreatedAt:   d.Timestamp.UnixNano(),
	}
	if err := s.db.WithContext(ctx).Insert(row); err != nil {
		return fmt.Errorf("failed to insert decision %s: %w", d.ID, err)
	}
	return nil
}

// Get the latest decisions for the source, newest first.
func (s *Store) Latest(ctx context.Context, source string, limit int) ([]Decision, error) {
	var rows []decisionRow
	query := "SELECT * FROM " + decisionRow{}.TableName() +
		" WHERE source = :source ORDER BY created_at DESC LIMIT :limit"
	params := map[string]any{"source": source, "limit": limit}
	if _, err := s.db.WithContext(ctx).Select(&rows, query, params); err != nil {
		return nil, fmt.Errorf("failed to select decisions: %w", err)
	}
	decisions := make([]Decision, 0, len(rows))
	for _, row := range rows {
		var eligible []string
		if err := json.Unmarshal([]byte(row.Eligible), &eligible); err != nil {
			return nil, fmt.Errorf("invalid eligible flavors in decision %s: %w", row.ID, err)
		}
		decisions = append(decisions, Decision{
			ID:     row.ID,
			Source: row.Source,
			Machine: machine.Machine{
				MemoryMB: row.MemoryMB,
				CPU:      row.CPU,
				DiskGB:   row.DiskGB,
				Model:    row.Model,
			},
			Eligible:    eligible,
			Flavor:      row.Flavor,
			Classified:  row.Classified,
			FlavorCount: row.FlavorCount,
			Timestamp:   time.Unix(0, row.CreatedAt).UTC(),
		})
	}
	return decisions, nil
}
