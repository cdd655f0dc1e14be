package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/openfield/openfield/app"
	"github.com/openfield/openfield/httpx"
	"github.com/openfield/openfield/log"
	"github.com/openfield/openfield/model"
)

// WebUpload is the entry/branch-entry upload endpoint. Validation failures
// come back as 400 with the {"errors":[...]} body; only malformed JSON and
// infrastructure failures surface as transport-level errors.
func WebUpload(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		payload := model.UploadPayload{}
		err := render.DecodeJSON(r.Body, &payload)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		receipt, bag, err := app.Uploads.Handle(r.Context(), slug, payload)
		if err != nil {
			httpx.LogInternalError(w, "upload.handle", err)
			return
		}
		if !bag.Empty() {
			httpx.ValidationFailed(w, r, bag)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"data": receipt,
		})
	}
}

// GetProject serves a project's definition to uploading clients.
func GetProject(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		var name string
		var version int
		var definition []byte
		err := app.QueryRowContext(r.Context(), `
			SELECT name, version, definition
			FROM project
			WHERE slug = ?`,
			slug,
		).Scan(&name, &version, &definition)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_project", slug)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_project", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"slug":               slug,
			"name":               name,
			"version":            version,
			"project_definition": json.RawMessage(definition),
		})
	}
}
