package httpserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const msgRouteNotFound = "Ruta no encontrada"

// frontendHandler answers every unrouted request. API paths get a JSON 404;
// with a built SPA present, other GETs get the file or index.html.
func frontendHandler(distDir string) http.Handler {
	apiNotFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, msgRouteNotFound)
	})

	distDir = strings.TrimSpace(distDir)
	if distDir == "" {
		return apiNotFound
	}
	indexPath := filepath.Join(distDir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		return apiNotFound
	}

	fileServer := http.FileServer(http.Dir(distDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" || r.Method != http.MethodGet {
			apiNotFound(w, r)
			return
		}

		cleanPath := path.Clean(r.URL.Path)
		if cleanPath == "." || cleanPath == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		fullPath := filepath.Join(distDir, strings.TrimPrefix(cleanPath, "/"))
		info, err := os.Stat(fullPath)
		if err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		// SPA fallback.
		http.ServeFile(w, r, indexPath)
	})
}
