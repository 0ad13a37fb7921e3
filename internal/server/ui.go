package server

import (
	"io/fs"
	"net/http"
	"strings"
)

// uiFS holds the embedded web client. Set via SetUI before creating the server.
var uiFS fs.FS

// SetUI sets the embedded filesystem for serving the web client.
func SetUI(fsys fs.FS) {
	uiFS = fsys
}

// spaHandler serves static files from the embedded FS. Unknown paths get
// index.html so the client can route them, except under /api and /graphql.
func spaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/graphql" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if uiFS == nil {
			http.Error(w, "web client not embedded", http.StatusNotFound)
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}
		if f, err := uiFS.Open(path); err != nil {
			path = "index.html"
		} else {
			f.Close()
		}
		http.ServeFileFS(w, r, uiFS, path)
	}
}
