// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/wardkeep/wardkeep/internal/protection"
)

// Load retrieves a protection snapshot by id.
func (s *Store) Load(ctx context.Context, id int) (protection.Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, kind, block_id, world, x, y, z, owner, password, created, last_accessed, data
		FROM protections WHERE id = $1
	`, id)

	snap, err := scanProtection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return protection.Snapshot{}, oops.With("protection_id", id).Wrap(protection.ErrNotFound)
	}
	if err != nil {
		return protection.Snapshot{}, oops.
			With("operation", "load protection").
			With("protection_id", id).
			Wrap(err)
	}
	return snap, nil
}

// LoadByLocation retrieves a protection snapshot by its coordinates.
func (s *Store) LoadByLocation(ctx context.Context, world string, x, y, z int) (protection.Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, kind, block_id, world, x, y, z, owner, password, created, last_accessed, data
		FROM protections WHERE world = $1 AND x = $2 AND y = $3 AND z = $4
	`, world, x, y, z)

	snap, err := scanProtection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return protection.Snapshot{}, oops.
			With("world", world).With("x", x).With("y", y).With("z", z).
			Wrap(protection.ErrNotFound)
	}
	if err != nil {
		return protection.Snapshot{}, oops.
			With("operation", "load protection by location").
			With("world", world).With("x", x).With("y", y).With("z", z).
			Wrap(err)
	}
	return snap, nil
}

// Create persists a new protection and returns its assigned id.
func (s *Store) Create(ctx context.Context, snap protection.Snapshot) (int, error) {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return 0, oops.With("operation", "encode extension data").Wrap(err)
	}

	var id int
	err = s.pool.QueryRow(ctx, `
		INSERT INTO protections (kind, block_id, world, x, y, z, owner, password, created, last_accessed, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, int(snap.Kind), snap.BlockID, snap.World, snap.X, snap.Y, snap.Z,
		snap.Owner, snap.Password, snap.Creation, snap.LastAccessed, data).Scan(&id)
	if isUniqueViolation(err) {
		return 0, oops.
			Code("DUPLICATE_LOCATION").
			With("world", snap.World).With("x", snap.X).With("y", snap.Y).With("z", snap.Z).
			Wrapf(err, "location already protected")
	}
	if err != nil {
		return 0, oops.With("operation", "create protection").Wrap(err)
	}
	return id, nil
}

// Save persists an existing protection snapshot.
func (s *Store) Save(ctx context.Context, snap protection.Snapshot) error {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return oops.With("operation", "encode extension data").Wrap(err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE protections
		SET kind = $2, block_id = $3, world = $4, x = $5, y = $6, z = $7,
		    owner = $8, password = $9, created = $10, last_accessed = $11, data = $12
		WHERE id = $1
	`, snap.ID, int(snap.Kind), snap.BlockID, snap.World, snap.X, snap.Y, snap.Z,
		snap.Owner, snap.Password, snap.Creation, snap.LastAccessed, data)
	if isUniqueViolation(err) {
		return oops.
			Code("DUPLICATE_LOCATION").
			With("world", snap.World).With("x", snap.X).With("y", snap.Y).With("z", snap.Z).
			Wrapf(err, "location already protected")
	}
	if err != nil {
		return oops.
			With("operation", "save protection").
			With("protection_id", snap.ID).
			Wrap(err)
	}
	return nil
}

// Remove deletes the protection row by id. Deleting a missing row is not
// an error: removal is idempotent at the record layer.
func (s *Store) Remove(ctx context.Context, id int) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM protections WHERE id = $1`, id)
	if err != nil {
		return oops.
			With("operation", "remove protection").
			With("protection_id", id).
			Wrap(err)
	}
	return nil
}

func scanProtection(row pgx.Row) (protection.Snapshot, error) {
	var snap protection.Snapshot
	var kind int
	var data []byte

	err := row.Scan(&snap.ID, &kind, &snap.BlockID, &snap.World, &snap.X, &snap.Y, &snap.Z,
		&snap.Owner, &snap.Password, &snap.Creation, &snap.LastAccessed, &data)
	if err != nil {
		return protection.Snapshot{}, err
	}

	snap.Kind = protection.Kind(kind)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &snap.Data); err != nil {
			return protection.Snapshot{}, oops.With("operation", "decode extension data").Wrap(err)
		}
	}
	return snap, nil
}
