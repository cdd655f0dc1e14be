package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openfield/openfield/app"
	"github.com/openfield/openfield/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	root.
		With(middlewares.CookieAuth(app.BearerServer), middlewares.Admin(app.TokenSecret)).
		Mount("/admin", servePrivateFiles("/admin"))
	root.Mount("/", servePublicFiles())

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Route("/internal", func(r chi.Router) {
		// upload traffic is throttled per instance
		r.With(middleware.ThrottleBacklog(32, 128, 10*time.Second)).
			Post("/web-upload/{slug}", WebUpload(app))

		r.Get("/project/{slug}", GetProject(app))
		r.Get("/entries/{slug}", ListEntries(app))
		r.Get("/entries/{slug}/{uuid}", GetEntry(app))

		r.Group(func(r chi.Router) {
			r.Use(middlewares.Admin(app.TokenSecret))

			r.Post("/projects", CreateProject(app))
			r.Get("/projects", ListProjects(app))
			r.Put("/project/{slug}", UpdateProject(app))
			r.Delete("/project/{slug}", DeleteProject(app))
		})
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

func servePublicFiles() http.Handler {
	return http.FileServer(http.Dir("public"))
}

func servePrivateFiles(path string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir("private")))
}
