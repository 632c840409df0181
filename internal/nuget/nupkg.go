package nuget

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"

	"github.com/soloworks/go-nuget-registry/internal/storage"
)

// Nupkg wraps the raw bytes of a pushed package, a ZIP archive carrying a
// single top-level .nuspec manifest.
type Nupkg struct {
	data []byte
}

// NewNupkg wraps data presumed to be a .nupkg archive.
func NewNupkg(data []byte) *Nupkg {
	return &Nupkg{data: data}
}

// Bytes returns the raw package content.
func (n *Nupkg) Bytes() []byte {
	return n.data
}

// Nuspec locates the single top-level .nuspec entry in the archive. A
// malformed archive, a missing manifest or more than one manifest is an
// ErrInvalidPackage.
func (n *Nupkg) Nuspec() (*Nuspec, error) {
	zr, err := zip.NewReader(bytes.NewReader(n.data), int64(len(n.data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip archive: %v", ErrInvalidPackage, err)
	}

	var manifest []byte
	found := false
	for _, zf := range zr.File {
		// Only .nuspec entries in the archive root count as the manifest.
		if filepath.Dir(zf.Name) != "." || filepath.Ext(zf.Name) != ".nuspec" {
			continue
		}
		if found {
			return nil, fmt.Errorf("%w: more than one .nuspec entry", ErrInvalidPackage)
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidPackage, zf.Name, err)
		}
		manifest, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidPackage, zf.Name, err)
		}
		found = true
	}
	if !found {
		return nil, fmt.Errorf("%w: no .nuspec entry", ErrInvalidPackage)
	}
	return NewNuspec(manifest), nil
}

// Hash computes the SHA-512 of the full package content.
func (n *Nupkg) Hash() Hash {
	sum := sha512.Sum512(n.data)
	return Hash(sum[:])
}

// Hash is a raw SHA-512 digest of a package blob.
type Hash []byte

// String returns the digest encoded as standard-alphabet base64, the format
// stored next to the package and surfaced to clients.
func (h Hash) String() string {
	return base64.StdEncoding.EncodeToString(h)
}

// Save writes the base64 encoding of the digest at the identity's hash key.
func (h Hash) Save(ctx context.Context, store storage.Store, identity PackageIdentity) error {
	return store.Save(ctx, identity.HashKey(), []byte(h.String()))
}
