package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openfield/openfield/model"
	"github.com/openfield/openfield/upload"
)

// Store implements the upload package's project and entry stores over the
// SQLite database.
type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// GetProject fetches one project and decodes its definition snapshot.
func (s *Store) GetProject(ctx context.Context, slug string) (*upload.StoredProject, error) {
	var p upload.StoredProject
	var raw []byte
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, slug, name, version, definition
		FROM project
		WHERE slug = ?`,
		slug,
	).Scan(&p.ID, &p.Slug, &p.Name, &p.Version, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, upload.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Definition, err = model.ParseDefinition(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveEntry persists an accepted entry and bumps the project's entry counter
// in the same transaction, so a failed insert leaves the stats untouched.
func (s *Store) SaveEntry(ctx context.Context, rec upload.EntryRecord) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entry (uuid, project_id, form_ref, answers, project_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.UUID, rec.ProjectID, rec.FormRef, string(rec.Answers), rec.Version, time.Now(),
	)
	if err != nil {
		return err
	}

	err = bumpStats(ctx, tx, rec.ProjectID, 1, 0)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// SaveBranchEntry persists an accepted branch entry, like SaveEntry.
func (s *Store) SaveBranchEntry(ctx context.Context, rec upload.EntryRecord) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO branch_entry (uuid, project_id, owner_entry_uuid, owner_input_ref, answers, project_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.UUID, rec.ProjectID, rec.OwnerEntryUUID, rec.OwnerInputRef, string(rec.Answers), rec.Version, time.Now(),
	)
	if err != nil {
		return err
	}

	err = bumpStats(ctx, tx, rec.ProjectID, 0, 1)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func bumpStats(ctx context.Context, tx *sql.Tx, projectID int64, entries, branchEntries int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO project_stats (project_id, entry_count, branch_entry_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id) DO UPDATE SET
			entry_count = entry_count + excluded.entry_count,
			branch_entry_count = branch_entry_count + excluded.branch_entry_count,
			updated_at = excluded.updated_at`,
		projectID, entries, branchEntries, time.Now(),
	)
	return err
}

// EntryExists reports whether an entry with the given uuid is persisted for
// the project. Branch uploads use it to verify their owner entry.
func (s *Store) EntryExists(ctx context.Context, projectID int64, entryUUID string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx, `
		SELECT 1 FROM entry
		WHERE project_id = ?
			AND uuid = ?`,
		projectID, entryUUID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
