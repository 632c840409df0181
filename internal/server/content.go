package server

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/soloworks/go-nuget-registry/internal/nuget"
)

// handleContent serves GET /content/{key}: raw bytes straight from the
// store, used as the packageContent location in registration leaves.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request, apiKey string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.requireRead(w, apiKey) {
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/content/")
	if key == "" || path.Clean("/"+key) != "/"+key {
		http.NotFound(w, r)
		return
	}

	data, err := s.repo.Content(r.Context(), key)
	if errors.Is(err, nuget.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.log.Error("content read failed", "key", key, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if strings.HasSuffix(key, ".nupkg") {
		w.Header().Set("Content-Disposition", "filename="+path.Base(key))
		w.Header().Set("Content-Type", "binary/octet-stream")
	}
	w.Write(data)
}
