package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetMaintenanceWindow returns the singleton maintenance window state.
// A missing row means maintenance has never been configured: disabled.
func (s *SQLiteStorage) GetMaintenanceWindow(ctx context.Context) (*MaintenanceWindow, error) {
	var w MaintenanceWindow
	var startsAt, endsAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		"SELECT maintenance_enabled, starts_at, ends_at, updated_at FROM settings WHERE id = 1").
		Scan(&w.Enabled, &startsAt, &endsAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &MaintenanceWindow{}, nil
		}
		return nil, fmt.Errorf("failed to get maintenance window: %w", err)
	}

	if startsAt.Valid {
		w.StartsAt = &startsAt.Time
	}
	if endsAt.Valid {
		w.EndsAt = &endsAt.Time
	}

	return &w, nil
}

// SetMaintenanceWindow replaces the maintenance window state.
func (s *SQLiteStorage) SetMaintenanceWindow(ctx context.Context, w *MaintenanceWindow) error {
	var startsAt, endsAt any
	if w.StartsAt != nil {
		startsAt = w.StartsAt.UTC()
	}
	if w.EndsAt != nil {
		endsAt = w.EndsAt.UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO settings (id, maintenance_enabled, starts_at, ends_at, updated_at)
		 VALUES (1, ?, ?, ?, ?)`,
		w.Enabled, startsAt, endsAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set maintenance window: %w", err)
	}

	return nil
}
