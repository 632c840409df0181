package nuget

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/soloworks/go-nuget-registry/internal/storage"
)

// Repository orchestrates package ingestion and metadata reads over a blob
// store. All mutation of a package namespace happens inside the store's
// exclusive scope keyed by the package root, which serializes concurrent
// pushes of the same package.
type Repository struct {
	store storage.Store
}

// NewRepository returns a repository over the given store.
func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

// Add ingests a pushed package: the content is staged under a random key,
// validated, checked for uniqueness and committed together with its hash,
// manifest and an updated versions index. The index is written last, so a
// reader that sees a version listed always finds its artifacts.
func (r *Repository) Add(ctx context.Context, content []byte) (PackageIdentity, error) {
	// Staged keys are UUIDs at the store root, outside any package
	// namespace, so they cannot collide with committed artifacts.
	staged := uuid.NewString()
	if err := r.store.Save(ctx, staged, content); err != nil {
		return PackageIdentity{}, err
	}

	data, err := r.store.Value(ctx, staged)
	if err != nil {
		r.discard(staged)
		return PackageIdentity{}, err
	}
	nupkg := NewNupkg(data)
	manifest, err := nupkg.Nuspec()
	if err != nil {
		r.discard(staged)
		return PackageIdentity{}, err
	}
	identity, err := manifest.Identity()
	if err != nil {
		r.discard(staged)
		return PackageIdentity{}, err
	}

	// Cheap uniqueness pre-check; the authoritative check is redone inside
	// the exclusive scope.
	existing, err := r.store.List(ctx, identity.RootKey())
	if err != nil {
		r.discard(staged)
		return PackageIdentity{}, err
	}
	if len(existing) > 0 {
		r.discard(staged)
		return PackageIdentity{}, fmt.Errorf("%w: %s", ErrVersionAlreadyExists, identity)
	}

	err = r.store.Exclusively(ctx, identity.Id.RootKey(), func(ctx context.Context) error {
		return r.commit(ctx, staged, nupkg, manifest, identity)
	})
	if err != nil {
		r.discard(staged)
		return PackageIdentity{}, err
	}
	return identity, nil
}

// commit runs inside the exclusive scope for the package.
func (r *Repository) commit(ctx context.Context, staged string, nupkg *Nupkg, manifest *Nuspec, identity PackageIdentity) error {
	existing, err := r.store.List(ctx, identity.RootKey())
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %s", ErrVersionAlreadyExists, identity)
	}

	versions, err := r.Versions(ctx, identity.Id)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.store.Move(gctx, staged, identity.NupkgKey()) })
	g.Go(func() error { return nupkg.Hash().Save(gctx, r.store, identity) })
	g.Go(func() error { return manifest.Save(gctx, r.store) })
	if err := g.Wait(); err != nil {
		r.cleanup(identity)
		return err
	}

	if err := versions.Add(identity.Version).Save(ctx, r.store, identity.Id.VersionsKey()); err != nil {
		r.cleanup(identity)
		return err
	}
	return nil
}

// Content reads raw bytes at an arbitrary key, for the package content
// endpoint. Fails with ErrNotFound when the key is absent.
func (r *Repository) Content(ctx context.Context, key string) ([]byte, error) {
	data, err := r.store.Value(ctx, key)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

// Versions loads the package's version index, empty when none is stored.
func (r *Repository) Versions(ctx context.Context, id PackageId) (*Versions, error) {
	data, err := r.store.Value(ctx, id.VersionsKey())
	if errors.Is(err, storage.ErrNotExist) {
		return &Versions{}, nil
	}
	if err != nil {
		return nil, err
	}
	return LoadVersions(data)
}

// Nuspec reads the stored manifest for an identity.
func (r *Repository) Nuspec(ctx context.Context, identity PackageIdentity) (*Nuspec, error) {
	data, err := r.store.Value(ctx, identity.NuspecKey())
	if errors.Is(err, storage.ErrNotExist) {
		return nil, fmt.Errorf("%w: no nuspec for %s", ErrNotFound, identity)
	}
	if err != nil {
		return nil, err
	}
	return NewNuspec(data), nil
}

// discard removes a staged blob, best effort. Runs detached from the push's
// context so a cancelled push still cleans up.
func (r *Repository) discard(staged string) {
	_ = r.store.Delete(context.Background(), staged)
}

// cleanup removes partially committed artifacts under the identity's root,
// best effort. The versions index is untouched since it is written last.
func (r *Repository) cleanup(identity PackageIdentity) {
	ctx := context.Background()
	keys, err := r.store.List(ctx, identity.RootKey())
	if err != nil {
		return
	}
	for _, key := range keys {
		_ = r.store.Delete(ctx, key)
	}
}
