package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/openfield/openfield/app"
	"github.com/openfield/openfield/config"
	"github.com/openfield/openfield/database"
	"github.com/openfield/openfield/httpx"
	"github.com/openfield/openfield/log"
	"github.com/openfield/openfield/routes"
	"github.com/openfield/openfield/upload"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	store := database.NewStore(db)

	app := app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Uploads: &upload.Orchestrator{
			Projects: store,
			Entries:  store,
		},
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
