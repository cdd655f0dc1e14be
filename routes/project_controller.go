package routes

import (
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mattn/go-sqlite3"

	"github.com/openfield/openfield/app"
	"github.com/openfield/openfield/httpx"
	"github.com/openfield/openfield/log"
	"github.com/openfield/openfield/model"
)

var reNoIdent = regexp.MustCompile(`\W+`)

func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = reNoIdent.ReplaceAllLiteralString(slug, " ")
	return strings.Join(strings.Fields(slug), "-")
}

// CreateProject stores a new project from a definition blob. The definition
// is checked structurally here, at save time, so the upload path can assume
// well-formed structures.
func CreateProject(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.read_body")
			return
		}

		def, err := model.ParseDefinition(raw)
		if err != nil {
			log.Debug("project.parse_definition:", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		slug := def.Project.Slug
		if slug == "" {
			slug = slugify(def.Project.Name)
		}
		if slug == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "project.empty_slug")
			return
		}

		now := time.Now()
		_, err = app.ExecContext(r.Context(), `
			INSERT INTO project (slug, name, version, definition, created_at, updated_at)
			VALUES (?, ?, 1, ?, ?, ?)`,
			slug, def.Project.Name, string(raw), now, now,
		)
		if isUniqueViolation(err) {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "project.slug_taken")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.insert_project", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"slug": slug,
		})
	}
}

func isUniqueViolation(err error) bool {
	if sqliteErr, ok := err.(sqlite3.Error); ok {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func ListProjects(app app.App) http.HandlerFunc {
	type projectInfo struct {
		Slug    string `json:"slug"`
		Name    string `json:"name"`
		Version int    `json:"version"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT slug, name, version
			FROM project
			ORDER BY slug`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_projects", err)
			return
		}
		defer rows.Close()

		projects := []projectInfo{}
		for rows.Next() {
			p := projectInfo{}
			err = rows.Scan(&p.Slug, &p.Name, &p.Version)
			if err != nil {
				httpx.LogInternalError(w, "db.get_projects.scan", err)
				return
			}

			projects = append(projects, p)
		}

		render.JSON(w, r, map[string]any{
			"projects": projects,
		})
	}
}

// UpdateProject replaces a project's definition and bumps its version.
// Entries already validated against the previous version keep the version
// they were accepted under.
func UpdateProject(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.read_body")
			return
		}

		def, err := model.ParseDefinition(raw)
		if err != nil {
			log.Debug("project.parse_definition:", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE project
			SET name = ?, definition = ?, version = version + 1, updated_at = ?
			WHERE slug = ?`,
			def.Project.Name, string(raw), time.Now(), slug,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_project", err)
			return
		}
		updated, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_project.rows", err)
			return
		}
		if updated == 0 {
			httpx.LogNotFound(w, "update_project", slug)
			return
		}

		render.JSON(w, r, map[string]any{
			"slug": slug,
		})
	}
}

func DeleteProject(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		res, err := app.ExecContext(r.Context(), `
			DELETE FROM project
			WHERE slug = ?`,
			slug,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_project", err)
			return
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_project.rows", err)
			return
		}
		if deleted == 0 {
			httpx.LogNotFound(w, "delete_project", slug)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
