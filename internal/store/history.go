// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package store

import (
	"context"

	"github.com/samber/oops"

	"github.com/wardkeep/wardkeep/internal/protection"
)

// LoadHistory returns every stored history record for a protection.
func (s *Store) LoadHistory(ctx context.Context, protectionID int) ([]protection.HistorySnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, protection_id, kind, status, x, y, z
		FROM protection_history WHERE protection_id = $1
	`, protectionID)
	if err != nil {
		return nil, oops.
			With("operation", "load history").
			With("protection_id", protectionID).
			Wrap(err)
	}
	defer rows.Close()

	var snaps []protection.HistorySnapshot
	for rows.Next() {
		var snap protection.HistorySnapshot
		var kind, status int
		if err := rows.Scan(&snap.ID, &snap.ProtectionID, &kind, &status, &snap.X, &snap.Y, &snap.Z); err != nil {
			return nil, oops.With("operation", "scan history row").Wrap(err)
		}
		snap.Kind = protection.HistoryKind(kind)
		snap.Status = protection.HistoryStatus(status)
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.
			With("operation", "iterate history").
			With("protection_id", protectionID).
			Wrap(err)
	}
	return snaps, nil
}

// SaveHistory inserts or updates a history record and returns its
// assigned id. Records without an id are inserted; the store assigns one.
func (s *Store) SaveHistory(ctx context.Context, snap protection.HistorySnapshot) (int, error) {
	if snap.ID == 0 {
		var id int
		err := s.pool.QueryRow(ctx, `
			INSERT INTO protection_history (protection_id, kind, status, x, y, z)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, snap.ProtectionID, int(snap.Kind), int(snap.Status), snap.X, snap.Y, snap.Z).Scan(&id)
		if err != nil {
			return 0, oops.
				With("operation", "insert history").
				With("protection_id", snap.ProtectionID).
				Wrap(err)
		}
		return id, nil
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE protection_history
		SET protection_id = $2, kind = $3, status = $4, x = $5, y = $6, z = $7
		WHERE id = $1
	`, snap.ID, snap.ProtectionID, int(snap.Kind), int(snap.Status), snap.X, snap.Y, snap.Z)
	if err != nil {
		return 0, oops.
			With("operation", "update history").
			With("history_id", snap.ID).
			Wrap(err)
	}
	return snap.ID, nil
}
