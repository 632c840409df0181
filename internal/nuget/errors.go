package nuget

import (
	"errors"
	"fmt"
)

// ErrInvalidPackage is returned when pushed content cannot be read as a
// well-formed NuGet package.
var ErrInvalidPackage = errors.New("invalid package")

// ErrVersionAlreadyExists is returned when artifacts are already stored for
// the pushed package identity.
var ErrVersionAlreadyExists = errors.New("package version already exists")

// ErrNotFound is returned when a package or manifest is not in the store.
var ErrNotFound = errors.New("not found")

// InvalidVersionError reports a version string that does not satisfy the
// SemVer 2.0 grammar. It is a subcategory of ErrInvalidPackage.
type InvalidVersionError struct {
	Value string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q", e.Value)
}

func (e *InvalidVersionError) Unwrap() error {
	return ErrInvalidPackage
}
