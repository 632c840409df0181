package nuget

import (
	"math/big"
	"strings"
)

// Version is a SemVer 2.0 version with the NuGet extensions: up to four
// numeric release components, an optional dot-separated prerelease and
// optional build metadata. Release components are arbitrary precision.
type Version struct {
	original   string
	release    []*big.Int
	prerelease []string
	build      []string
}

// ParseVersion validates s against the version grammar. Invalid input is
// reported as an *InvalidVersionError.
func ParseVersion(s string) (Version, error) {
	v := Version{original: s}

	rest := s
	if head, meta, ok := strings.Cut(rest, "+"); ok {
		build, valid := splitIdentifiers(meta, false)
		if !valid {
			return Version{}, &InvalidVersionError{Value: s}
		}
		v.build = build
		rest = head
	}
	if head, pre, ok := strings.Cut(rest, "-"); ok {
		prerelease, valid := splitIdentifiers(pre, true)
		if !valid {
			return Version{}, &InvalidVersionError{Value: s}
		}
		v.prerelease = prerelease
		rest = head
	}

	parts := strings.Split(rest, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return Version{}, &InvalidVersionError{Value: s}
	}
	for _, part := range parts {
		n, ok := parseNumeric(part)
		if !ok {
			return Version{}, &InvalidVersionError{Value: s}
		}
		v.release = append(v.release, n)
	}
	return v, nil
}

// String returns the version as it appeared on input.
func (v Version) String() string {
	return v.original
}

// Normalized returns the canonical representation: release components
// without leading zeros, a trailing zero fourth component dropped, build
// metadata removed and prerelease preserved verbatim.
func (v Version) Normalized() string {
	release := v.release
	if len(release) == 4 && release[3].Sign() == 0 {
		release = release[:3]
	}
	var sb strings.Builder
	for i, n := range release {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(n.String())
	}
	if len(v.prerelease) > 0 {
		sb.WriteByte('-')
		sb.WriteString(strings.Join(v.prerelease, "."))
	}
	return sb.String()
}

// IsPrerelease reports whether the version carries prerelease identifiers.
func (v Version) IsPrerelease() bool {
	return len(v.prerelease) > 0
}

// Compare returns -1, 0 or 1 ordering v against o. Missing trailing release
// components count as zero and build metadata is ignored.
func (v Version) Compare(o Version) int {
	for i := 0; i < 4; i++ {
		if c := releaseComponent(v.release, i).Cmp(releaseComponent(o.release, i)); c != 0 {
			return c
		}
	}
	switch {
	case len(v.prerelease) == 0 && len(o.prerelease) == 0:
		return 0
	case len(v.prerelease) == 0:
		return 1
	case len(o.prerelease) == 0:
		return -1
	}
	for i := 0; i < len(v.prerelease) && i < len(o.prerelease); i++ {
		if c := compareIdentifiers(v.prerelease[i], o.prerelease[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(v.prerelease) < len(o.prerelease):
		return -1
	case len(v.prerelease) > len(o.prerelease):
		return 1
	}
	return 0
}

var zero = big.NewInt(0)

func releaseComponent(release []*big.Int, i int) *big.Int {
	if i < len(release) {
		return release[i]
	}
	return zero
}

// compareIdentifiers orders two prerelease identifiers: numeric identifiers
// numerically, numeric before alphanumeric, alphanumeric by ASCII order.
func compareIdentifiers(a, b string) int {
	an, aNum := parseNumeric(a)
	bn, bNum := parseNumeric(b)
	switch {
	case aNum && bNum:
		return an.Cmp(bn)
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(a, b)
}

// splitIdentifiers validates a prerelease or build metadata section: one or
// more dot-separated identifiers of [0-9A-Za-z-]. In a prerelease a purely
// numeric identifier must not have leading zeros.
func splitIdentifiers(s string, prerelease bool) ([]string, bool) {
	if s == "" {
		return nil, false
	}
	idents := strings.Split(s, ".")
	for _, ident := range idents {
		if !validIdentifier(ident) {
			return nil, false
		}
		if prerelease && isNumeric(ident) && len(ident) > 1 && ident[0] == '0' {
			return nil, false
		}
	}
	return idents, true
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '-' {
			continue
		}
		return false
	}
	return true
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// parseNumeric reads a digit string as an arbitrary precision integer.
// Leading zeros are tolerated and stripped.
func parseNumeric(s string) (*big.Int, bool) {
	if !isNumeric(s) {
		return nil, false
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return n, true
}
