package httpx

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/openfield/openfield/log"
	"github.com/openfield/openfield/validation"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// ValidationFailed sends the {"errors":[...]} body with status 400. The body
// shape is contractual: clients parse code/source pairs out of it to
// highlight the offending field.
func ValidationFailed(w http.ResponseWriter, r *http.Request, bag *validation.Bag) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, bag.Response())
}
