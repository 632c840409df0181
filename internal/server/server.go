// Package server exposes the repository over the NuGet v3 HTTP protocol:
// package publish, registration metadata and package content.
package server

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/soloworks/go-nuget-registry/internal/config"
	"github.com/soloworks/go-nuget-registry/internal/nuget"
)

// Server routes NuGet protocol requests to the repository.
type Server struct {
	cfg  *config.Config
	repo *nuget.Repository
	log  *log.Logger
}

// New returns a server over the given repository.
func New(cfg *config.Config, repo *nuget.Repository, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{cfg: cfg, repo: repo, log: logger}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get("X-NuGet-ApiKey")
	s.log.Debug("routing", "method", r.Method, "path", r.URL.Path)

	switch {
	case r.URL.Path == "/package":
		s.handlePublish(w, r, apiKey)
	case strings.HasPrefix(r.URL.Path, "/registrations/"):
		s.handleRegistration(w, r, apiKey)
	case strings.HasPrefix(r.URL.Path, "/content/"):
		s.handleContent(w, r, apiKey)
	default:
		http.NotFound(w, r)
	}
}

// requireRead enforces read-only API keys on the metadata and content
// endpoints. Reads are open unless read-only keys are configured.
func (s *Server) requireRead(w http.ResponseWriter, apiKey string) bool {
	if !s.cfg.CanRead(apiKey) {
		w.WriteHeader(http.StatusForbidden)
		return false
	}
	return true
}
