package server

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/soloworks/go-nuget-registry/internal/nuget"
)

var registrationPath = regexp.MustCompile(`^/registrations/([^/]+)/index\.json$`)

// RegistrationIndex is the registration document listing the versions of a
// package, a single page for this server.
type RegistrationIndex struct {
	Count int                `json:"count"`
	Items []RegistrationPage `json:"items"`
}

// RegistrationPage covers an inclusive version range with one leaf per
// version in ascending order.
type RegistrationPage struct {
	ID    string             `json:"@id"`
	Lower string             `json:"lower"`
	Upper string             `json:"upper"`
	Count int                `json:"count"`
	Items []RegistrationLeaf `json:"items"`
}

// RegistrationLeaf describes one stored package version.
type RegistrationLeaf struct {
	ID             string       `json:"@id"`
	Listed         bool         `json:"listed"`
	PackageContent string       `json:"packageContent"`
	CatalogEntry   CatalogEntry `json:"catalogEntry"`
}

// CatalogEntry carries the package metadata clients display. Id keeps the
// casing from the .nuspec; Version is normalized.
type CatalogEntry struct {
	ID          string `json:"@id"`
	PackageID   string `json:"id"`
	Version     string `json:"version"`
	Authors     string `json:"authors,omitempty"`
	Description string `json:"description,omitempty"`
	ProjectURL  string `json:"projectUrl,omitempty"`
	Tags        string `json:"tags,omitempty"`
}

// handleRegistration serves GET /registrations/{id}/index.json. Any other
// path under /registrations/ is not found.
func (s *Server) handleRegistration(w http.ResponseWriter, r *http.Request, apiKey string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.requireRead(w, apiKey) {
		return
	}
	match := registrationPath.FindStringSubmatch(r.URL.Path)
	if match == nil {
		http.NotFound(w, r)
		return
	}
	id, err := nuget.ParsePackageId(match[1])
	if err != nil {
		http.NotFound(w, r)
		return
	}

	index, err := s.registrationIndex(r, id)
	if err != nil {
		s.log.Error("registration failed", "id", id.Normalized(), "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(index); err != nil {
		s.log.Error("writing registration", "err", err)
	}
}

// registrationIndex builds the document from the versions index and the
// stored manifests.
func (s *Server) registrationIndex(r *http.Request, id nuget.PackageId) (*RegistrationIndex, error) {
	versions, err := s.repo.Versions(r.Context(), id)
	if err != nil {
		return nil, err
	}
	all := versions.All()
	if len(all) == 0 {
		return &RegistrationIndex{Count: 0, Items: []RegistrationPage{}}, nil
	}

	page := RegistrationPage{
		ID:    s.cfg.HostURL + "/registrations/" + id.Normalized() + "/index.json",
		Lower: all[0].Normalized(),
		Upper: all[len(all)-1].Normalized(),
		Count: len(all),
	}
	for _, version := range all {
		identity := nuget.PackageIdentity{Id: id, Version: version}
		leaf, err := s.registrationLeaf(r, identity)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, leaf)
	}
	return &RegistrationIndex{Count: 1, Items: []RegistrationPage{page}}, nil
}

func (s *Server) registrationLeaf(r *http.Request, identity nuget.PackageIdentity) (RegistrationLeaf, error) {
	manifest, err := s.repo.Nuspec(r.Context(), identity)
	if err != nil {
		return RegistrationLeaf{}, err
	}
	manifestID, err := manifest.PackageId()
	if err != nil {
		return RegistrationLeaf{}, err
	}

	leafURL := s.cfg.HostURL + "/registrations/" + identity.Id.Normalized() + "/" + identity.Version.Normalized() + ".json"
	leaf := RegistrationLeaf{
		ID:             leafURL,
		Listed:         true,
		PackageContent: s.cfg.HostURL + "/content/" + identity.NupkgKey(),
		CatalogEntry: CatalogEntry{
			ID:        leafURL,
			PackageID: manifestID.Original(),
			Version:   identity.Version.Normalized(),
		},
	}
	if meta, err := manifest.Metadata(); err == nil {
		leaf.CatalogEntry.Authors = meta.Meta.Authors
		leaf.CatalogEntry.Description = meta.Meta.Description
		leaf.CatalogEntry.ProjectURL = meta.Meta.ProjectURL
		leaf.CatalogEntry.Tags = meta.Meta.Tags
	}
	return leaf, nil
}
