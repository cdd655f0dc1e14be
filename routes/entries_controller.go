package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/openfield/openfield/app"
	"github.com/openfield/openfield/httpx"
	"github.com/openfield/openfield/model"
)

type entryView struct {
	UUID           string          `json:"uuid"`
	Type           string          `json:"type"`
	FormRef        string          `json:"form_ref,omitempty"`
	OwnerEntryUUID string          `json:"owner_entry_uuid,omitempty"`
	OwnerInputRef  string          `json:"owner_input_ref,omitempty"`
	Answers        json.RawMessage `json:"answers"`
	ProjectVersion int             `json:"project_version"`
	CreatedAt      time.Time       `json:"created_at"`
}

func projectID(r *http.Request, app app.App, slug string) (int64, error) {
	var id int64
	err := app.QueryRowContext(r.Context(), `
		SELECT id FROM project
		WHERE slug = ?`,
		slug,
	).Scan(&id)
	return id, err
}

// ListEntries lists a project's entries. A branch_ref query parameter
// switches to the branch entries owned by that input; form_ref filters
// hierarchy entries by form.
func ListEntries(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		id, err := projectID(r, app, slug)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_entries.project", slug)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_entries.project", err)
			return
		}

		branchRef := r.URL.Query().Get("branch_ref")
		formRef := r.URL.Query().Get("form_ref")

		var rows *sql.Rows
		if branchRef != "" {
			rows, err = app.QueryContext(r.Context(), `
				SELECT uuid, owner_entry_uuid, owner_input_ref, answers, project_version, created_at
				FROM branch_entry
				WHERE project_id = ?
					AND owner_input_ref = ?
				ORDER BY id`,
				id, branchRef,
			)
		} else if formRef != "" {
			rows, err = app.QueryContext(r.Context(), `
				SELECT uuid, form_ref, answers, project_version, created_at
				FROM entry
				WHERE project_id = ?
					AND form_ref = ?
				ORDER BY id`,
				id, formRef,
			)
		} else {
			rows, err = app.QueryContext(r.Context(), `
				SELECT uuid, form_ref, answers, project_version, created_at
				FROM entry
				WHERE project_id = ?
				ORDER BY id`,
				id,
			)
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_entries", err)
			return
		}
		defer rows.Close()

		entries := []entryView{}
		for rows.Next() {
			e := entryView{}
			var answers []byte
			if branchRef != "" {
				e.Type = model.KindBranchEntry
				err = rows.Scan(&e.UUID, &e.OwnerEntryUUID, &e.OwnerInputRef, &answers, &e.ProjectVersion, &e.CreatedAt)
			} else {
				e.Type = model.KindEntry
				err = rows.Scan(&e.UUID, &e.FormRef, &answers, &e.ProjectVersion, &e.CreatedAt)
			}
			if err != nil {
				httpx.LogInternalError(w, "db.get_entries.scan", err)
				return
			}
			e.Answers = answers

			entries = append(entries, e)
		}

		var entryCount, branchEntryCount int
		err = app.QueryRowContext(r.Context(), `
			SELECT entry_count, branch_entry_count
			FROM project_stats
			WHERE project_id = ?`,
			id,
		).Scan(&entryCount, &branchEntryCount)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			httpx.LogInternalError(w, "db.get_entries.stats", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"entries": entries,
			"stats": map[string]int{
				"entry_count":        entryCount,
				"branch_entry_count": branchEntryCount,
			},
		})
	}
}

// GetEntry fetches one persisted entry or branch entry by uuid.
func GetEntry(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		uuid := chi.URLParam(r, "uuid")

		id, err := projectID(r, app, slug)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_entry.project", slug)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_entry.project", err)
			return
		}

		e := entryView{Type: model.KindEntry}
		var answers []byte
		err = app.QueryRowContext(r.Context(), `
			SELECT uuid, form_ref, answers, project_version, created_at
			FROM entry
			WHERE project_id = ?
				AND uuid = ?`,
			id, uuid,
		).Scan(&e.UUID, &e.FormRef, &answers, &e.ProjectVersion, &e.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			// not a hierarchy entry, try branch entries
			e = entryView{Type: model.KindBranchEntry}
			err = app.QueryRowContext(r.Context(), `
				SELECT uuid, owner_entry_uuid, owner_input_ref, answers, project_version, created_at
				FROM branch_entry
				WHERE project_id = ?
					AND uuid = ?`,
				id, uuid,
			).Scan(&e.UUID, &e.OwnerEntryUUID, &e.OwnerInputRef, &answers, &e.ProjectVersion, &e.CreatedAt)
		}
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_entry", uuid)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_entry", err)
			return
		}
		e.Answers = answers

		render.JSON(w, r, map[string]any{
			"data": e,
		})
	}
}
