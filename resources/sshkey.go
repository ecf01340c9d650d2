package resources

import (
	"context"
	"fmt"
	"strconv"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/doapi"
	"github.com/atoll-cloud/atoll/paginate"
	"github.com/atoll-cloud/atoll/types"
)

type keyService interface {
	List(ctx context.Context, opt *godo.ListOptions) ([]godo.Key, *godo.Response, error)
	Create(ctx context.Context, req *godo.KeyCreateRequest) (*godo.Key, *godo.Response, error)
	DeleteByID(ctx context.Context, id int) (*godo.Response, error)
}

type sshKeyAdapter struct {
	keys     keyService
	defaults Defaults
	log      zerolog.Logger
}

func newSSHKeyAdapter(keys keyService, defaults Defaults, log zerolog.Logger) *sshKeyAdapter {
	return &sshKeyAdapter{keys: keys, defaults: defaults, log: log.With().Str("kind", "ssh_key").Logger()}
}

func (a *sshKeyAdapter) Kind() string { return "ssh_key" }

func (a *sshKeyAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	keys, err := paginate.All(ctx, a.keys.List, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing ssh keys: %w", err)
	}

	out := make([]types.Resource, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyResource(k))
	}
	return out, nil
}

// Create registers a public key. A 422 "already in use" from the
// backend triggers exactly one follow-up lookup: if an existing key
// carries the same public key material it is returned as a rescued,
// unchanged result instead of a failure.
func (a *sshKeyAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	publicKey := spec.Attrs["public_key"]
	if publicKey == "" {
		return CreateOutcome{}, fmt.Errorf("ssh_key %q: public_key attribute is required", spec.Name)
	}

	created, _, err := a.keys.Create(ctx, &godo.KeyCreateRequest{Name: spec.Name, PublicKey: publicKey})
	if err == nil {
		r := keyResource(*created)
		return CreateOutcome{Resource: &r}, nil
	}
	if !doapi.IsDuplicate(err) {
		return CreateOutcome{}, fmt.Errorf("creating ssh key %q: %w", spec.Name, err)
	}

	a.log.Info().Str("name", spec.Name).Msg("key already registered, resolving existing record")
	existing, lookupErr := a.findByPublicKey(ctx, publicKey)
	if lookupErr != nil {
		return CreateOutcome{}, fmt.Errorf("resolving existing ssh key after duplicate response: %w", lookupErr)
	}
	if existing == nil {
		// Duplicate response but no matching key: surface the original.
		return CreateOutcome{}, fmt.Errorf("creating ssh key %q: %w", spec.Name, err)
	}
	return CreateOutcome{Resource: existing, Rescued: true}, nil
}

func (a *sshKeyAdapter) findByPublicKey(ctx context.Context, publicKey string) (*types.Resource, error) {
	keys, err := paginate.All(ctx, a.keys.List, a.defaults.Paginate())
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if k.PublicKey == publicKey {
			r := keyResource(k)
			return &r, nil
		}
	}
	return nil, nil
}

func (a *sshKeyAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	return nil, fmt.Errorf("ssh keys have no mutable fields")
}

func (a *sshKeyAdapter) Delete(ctx context.Context, current types.Resource) error {
	id, err := strconv.Atoi(current.ID)
	if err != nil {
		return fmt.Errorf("bad ssh key id %q: %w", current.ID, err)
	}
	if _, err := a.keys.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("deleting ssh key %d: %w", id, err)
	}
	return nil
}

func (a *sshKeyAdapter) Drifted(types.Resource, types.ResourceSpec) bool { return false }

func keyResource(k godo.Key) types.Resource {
	return types.Resource{
		ID:   strconv.Itoa(k.ID),
		Kind: "ssh_key",
		Name: k.Name,
		Attrs: map[string]string{
			"fingerprint": k.Fingerprint,
			"public_key":  k.PublicKey,
		},
	}
}
