package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/mcoot/quill/internal/validation"
	"github.com/mcoot/quill/internal/web/middleware"
	"github.com/mcoot/quill/internal/web/templates/layout"
	"github.com/mcoot/quill/internal/web/templates/pages"
)

// render writes a page component with the given status
func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Default().Error("failed to render page", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
}

// pageData builds the shared page data from the request context
func pageData(r *http.Request, title string) layout.PageData {
	return layout.PageData{
		Title:    title,
		Identity: middleware.GetIdentity(r.Context()),
		Flash:    middleware.GetFlash(r.Context()),
	}
}

func renderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	render(w, r, status, pages.Error(pages.ErrorData{
		PageData: pageData(r, title),
		Message:  message,
	}))
}

func renderNotFound(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, http.StatusNotFound, "Not found", "That post doesn't exist or isn't available to you.")
}

// fieldErrors flattens a validation failure into per-field messages
// Returns nil if err is not a validation error
func fieldErrors(err error) map[string]string {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return nil
	}
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		out[f.Field] = f.Field + " " + f.Message
	}
	return out
}

// redirect sends the browser elsewhere with a flash message
func redirect(w http.ResponseWriter, r *http.Request, path, flashType, message string) {
	if message != "" {
		middleware.SetFlash(w, flashType, message)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
