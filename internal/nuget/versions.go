package nuget

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/soloworks/go-nuget-registry/internal/storage"
)

// Versions is the per-package index of known versions. On disk it is
// `{"versions":[...]}` with normalized strings sorted ascending.
type Versions struct {
	list []Version
}

type versionsDoc struct {
	Versions []string `json:"versions"`
}

// NewVersions returns an index over the given versions, sorted and
// deduplicated.
func NewVersions(versions ...Version) *Versions {
	return (&Versions{}).addAll(versions)
}

// LoadVersions parses an index document. Nil or empty input yields an empty
// index; a document that does not parse is an error, never overwritten.
func LoadVersions(data []byte) (*Versions, error) {
	if len(data) == 0 {
		return &Versions{}, nil
	}
	var doc versionsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt versions index: %w", err)
	}
	parsed := make([]Version, 0, len(doc.Versions))
	for _, raw := range doc.Versions {
		version, err := ParseVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt versions index: %w", err)
		}
		parsed = append(parsed, version)
	}
	return NewVersions(parsed...), nil
}

// Add returns a new index containing the existing versions plus v.
func (vs *Versions) Add(v Version) *Versions {
	return (&Versions{list: vs.list}).addAll([]Version{v})
}

// All returns the versions in ascending order.
func (vs *Versions) All() []Version {
	out := make([]Version, len(vs.list))
	copy(out, vs.list)
	return out
}

// Save serializes the index and writes it at key.
func (vs *Versions) Save(ctx context.Context, store storage.Store, key string) error {
	doc := versionsDoc{Versions: make([]string, 0, len(vs.list))}
	for _, v := range vs.list {
		doc.Versions = append(doc.Versions, v.Normalized())
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return store.Save(ctx, key, data)
}

func (vs *Versions) addAll(versions []Version) *Versions {
	merged := make([]Version, 0, len(vs.list)+len(versions))
	seen := make(map[string]bool, len(vs.list)+len(versions))
	for _, v := range append(append([]Version{}, vs.list...), versions...) {
		norm := v.Normalized()
		if seen[norm] {
			continue
		}
		seen[norm] = true
		merged = append(merged, v)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Compare(merged[j]) < 0
	})
	return &Versions{list: merged}
}
