package nuget

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	nuspec "github.com/soloworks/go-nuspec"

	"github.com/soloworks/go-nuget-registry/internal/storage"
)

// Nuspec wraps the XML bytes of a package manifest. Identity extraction is
// namespace-agnostic since the .nuspec schema URI varies between client
// versions.
type Nuspec struct {
	data []byte
}

// NewNuspec wraps data presumed to be .nuspec XML.
func NewNuspec(data []byte) *Nuspec {
	return &Nuspec{data: data}
}

// Bytes returns the raw manifest content.
func (n *Nuspec) Bytes() []byte {
	return n.data
}

// PackageId reads the /package/metadata/id element.
func (n *Nuspec) PackageId() (PackageId, error) {
	raw, err := n.element("id")
	if err != nil {
		return PackageId{}, err
	}
	return ParsePackageId(raw)
}

// Version reads and validates the /package/metadata/version element.
func (n *Nuspec) Version() (Version, error) {
	raw, err := n.element("version")
	if err != nil {
		return Version{}, err
	}
	return ParseVersion(raw)
}

// Identity combines the manifest's id and version.
func (n *Nuspec) Identity() (PackageIdentity, error) {
	id, err := n.PackageId()
	if err != nil {
		return PackageIdentity{}, err
	}
	version, err := n.Version()
	if err != nil {
		return PackageIdentity{}, err
	}
	return PackageIdentity{Id: id, Version: version}, nil
}

// Metadata parses the full manifest for display fields (authors,
// description, project URL, tags).
func (n *Nuspec) Metadata() (*nuspec.NuSpec, error) {
	nsf, err := nuspec.FromBytes(n.data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad nuspec xml: %v", ErrInvalidPackage, err)
	}
	return nsf, nil
}

// Save writes the raw manifest bytes at the identity's nuspec key.
func (n *Nuspec) Save(ctx context.Context, store storage.Store) error {
	identity, err := n.Identity()
	if err != nil {
		return err
	}
	return store.Save(ctx, identity.NuspecKey(), n.data)
}

// element reads the text of the /package/metadata/<name> element, matching
// on local names only. Exactly one occurrence is required.
func (n *Nuspec) element(name string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(n.data))
	var path []string
	var values []string
	var text strings.Builder
	collecting := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: bad nuspec xml: %v", ErrInvalidPackage, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			if matchesMetadata(path, name) {
				collecting = true
				text.Reset()
			}
		case xml.EndElement:
			if collecting && matchesMetadata(path, name) {
				values = append(values, text.String())
				collecting = false
			}
			path = path[:len(path)-1]
		case xml.CharData:
			if collecting {
				text.Write(t)
			}
		}
	}
	switch len(values) {
	case 0:
		return "", fmt.Errorf("%w: no %s element in nuspec", ErrInvalidPackage, name)
	case 1:
		return strings.TrimSpace(values[0]), nil
	default:
		return "", fmt.Errorf("%w: multiple %s elements in nuspec", ErrInvalidPackage, name)
	}
}

func matchesMetadata(path []string, name string) bool {
	return len(path) == 3 && path[0] == "package" && path[1] == "metadata" && path[2] == name
}
