package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/openfield/openfield/config"
	"github.com/openfield/openfield/upload"
)

// App bundles the shared dependencies the route controllers close over.
type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
	Uploads *upload.Orchestrator
}
