package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/soloworks/go-nuget-registry/internal/nuget"
)

// handlePublish serves PUT /package: the first part of the multipart body is
// the .nupkg content handed to the repository.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request, apiKey string) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.cfg.CanWrite(apiKey) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		s.log.Warn("push rejected", "err", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	part, err := mr.NextPart()
	if err != nil {
		s.log.Warn("push rejected", "err", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	content, err := io.ReadAll(part)
	part.Close()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	identity, err := s.repo.Add(r.Context(), content)
	switch {
	case err == nil:
		s.log.Info("package added", "id", identity.Id.Normalized(), "version", identity.Version.Normalized())
		w.WriteHeader(http.StatusCreated)
	case errors.Is(err, nuget.ErrVersionAlreadyExists):
		s.log.Warn("push conflict", "err", err)
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, nuget.ErrInvalidPackage):
		s.log.Warn("push rejected", "err", err)
		w.WriteHeader(http.StatusBadRequest)
	default:
		s.log.Error("push failed", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}
