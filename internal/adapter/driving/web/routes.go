package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// The sign-in page lives at /, authenticated pages under /app/*.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Session gate.
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /logout", h.Logout)

	// Manager view.
	mux.HandleFunc("GET /app/entries", h.requireSession(h.Entries))
	mux.HandleFunc("POST /app/entries", h.requireSession(h.CreateEntry))
	mux.HandleFunc("GET /app/entries/new", h.requireSession(h.NewEntryForm))
	mux.HandleFunc("GET /app/entries/edit", h.requireSession(h.EditEntryForm))
	mux.HandleFunc("POST /app/entries/update", h.requireSession(h.UpdateEntry))
	mux.HandleFunc("GET /app/entries/remove", h.requireSession(h.ConfirmRemoveEntry))
	mux.HandleFunc("POST /app/entries/remove", h.requireSession(h.RemoveEntry))

	// Tree view.
	mux.HandleFunc("GET /app/tree", h.requireSession(h.Tree))
}
