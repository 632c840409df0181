package nuget

import (
	"fmt"
	"regexp"
	"strings"
)

var packageIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// PackageId is a NuGet package identifier. Storage keys and equality use the
// lower-case normalized form; the original casing is kept for display.
type PackageId struct {
	raw string
}

// ParsePackageId validates raw against the package id grammar.
func ParsePackageId(raw string) (PackageId, error) {
	if !packageIDPattern.MatchString(raw) {
		return PackageId{}, fmt.Errorf("%w: bad package id %q", ErrInvalidPackage, raw)
	}
	return PackageId{raw: raw}, nil
}

// Original returns the id as it appeared in the .nuspec.
func (id PackageId) Original() string {
	return id.raw
}

// Normalized returns the lower-case form used for keys and comparisons.
func (id PackageId) Normalized() string {
	return strings.ToLower(id.raw)
}

// RootKey is the root of the package namespace, the scope key for all
// exclusive writes to the package.
func (id PackageId) RootKey() string {
	return id.Normalized() + "/"
}

// VersionsKey locates the per-package versions index document.
func (id PackageId) VersionsKey() string {
	return id.Normalized() + "/index.json"
}

func (id PackageId) String() string {
	return id.raw
}

// PackageIdentity is the (id, version) pair identifying one stored package.
type PackageIdentity struct {
	Id      PackageId
	Version Version
}

// RootKey is the per-version directory holding the package artifacts.
func (pi PackageIdentity) RootKey() string {
	return pi.Id.Normalized() + "/" + pi.Version.Normalized() + "/"
}

// NupkgKey locates the package blob.
func (pi PackageIdentity) NupkgKey() string {
	return pi.RootKey() + pi.fileBase() + ".nupkg"
}

// NuspecKey locates the extracted manifest.
func (pi PackageIdentity) NuspecKey() string {
	return pi.RootKey() + pi.fileBase() + ".nuspec"
}

// HashKey locates the base64-encoded SHA-512 of the package blob.
func (pi PackageIdentity) HashKey() string {
	return pi.NupkgKey() + ".sha512"
}

func (pi PackageIdentity) fileBase() string {
	return pi.Id.Normalized() + "." + pi.Version.Normalized()
}

func (pi PackageIdentity) String() string {
	return pi.Id.Normalized() + ":" + pi.Version.Normalized()
}
