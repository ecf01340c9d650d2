package resources

import (
	"context"
	"fmt"
	"strconv"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/paginate"
	"github.com/atoll-cloud/atoll/types"
)

type recordService interface {
	Records(ctx context.Context, domain string, opt *godo.ListOptions) ([]godo.DomainRecord, *godo.Response, error)
	CreateRecord(ctx context.Context, domain string, req *godo.DomainRecordEditRequest) (*godo.DomainRecord, *godo.Response, error)
	EditRecord(ctx context.Context, domain string, id int, req *godo.DomainRecordEditRequest) (*godo.DomainRecord, *godo.Response, error)
	DeleteRecord(ctx context.Context, domain string, id int) (*godo.Response, error)
}

// recordAdapter manages DNS records. The owning domain comes from the
// spec's domain attribute; record type defaults to A.
type recordAdapter struct {
	records  recordService
	defaults Defaults
	log      zerolog.Logger
}

func newRecordAdapter(records recordService, defaults Defaults, log zerolog.Logger) *recordAdapter {
	return &recordAdapter{records: records, defaults: defaults, log: log.With().Str("kind", "domain_record").Logger()}
}

func (a *recordAdapter) Kind() string { return "domain_record" }

func (a *recordAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	return nil, fmt.Errorf("domain records are scoped by their domain; resolve through the declared spec")
}

// FindForSpec lists the records of the spec's domain. Records live
// under their domain, so the generic filter alone cannot address them.
func (a *recordAdapter) FindForSpec(ctx context.Context, spec types.ResourceSpec) ([]types.Resource, error) {
	domain := spec.Attrs["domain"]
	if domain == "" {
		return nil, fmt.Errorf("domain_record %q: domain attribute is required", spec.Name)
	}

	list := func(ctx context.Context, opt *godo.ListOptions) ([]godo.DomainRecord, *godo.Response, error) {
		return a.records.Records(ctx, domain, opt)
	}
	records, err := paginate.All(ctx, list, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing records of %s: %w", domain, err)
	}

	recordType := recordTypeOf(spec)
	out := make([]types.Resource, 0, len(records))
	for _, r := range records {
		if r.Type != recordType {
			continue
		}
		out = append(out, recordResource(domain, r))
	}
	return out, nil
}

func (a *recordAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	domain := spec.Attrs["domain"]
	created, _, err := a.records.CreateRecord(ctx, domain, recordRequest(spec))
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("creating record %q in %s: %w", spec.Name, domain, err)
	}
	r := recordResource(domain, *created)
	return CreateOutcome{Resource: &r}, nil
}

func (a *recordAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	domain := current.Attr("domain")
	id, err := strconv.Atoi(current.ID)
	if err != nil {
		return nil, fmt.Errorf("bad record id %q: %w", current.ID, err)
	}

	updated, _, err := a.records.EditRecord(ctx, domain, id, recordRequest(spec))
	if err != nil {
		return nil, fmt.Errorf("updating record %d in %s: %w", id, domain, err)
	}
	r := recordResource(domain, *updated)
	return &r, nil
}

func (a *recordAdapter) Delete(ctx context.Context, current types.Resource) error {
	domain := current.Attr("domain")
	id, err := strconv.Atoi(current.ID)
	if err != nil {
		return fmt.Errorf("bad record id %q: %w", current.ID, err)
	}
	if _, err := a.records.DeleteRecord(ctx, domain, id); err != nil {
		return fmt.Errorf("deleting record %d in %s: %w", id, domain, err)
	}
	return nil
}

func (a *recordAdapter) Drifted(current types.Resource, spec types.ResourceSpec) bool {
	if data := spec.Attrs["data"]; data != "" && data != current.Attr("data") {
		return true
	}
	if ttl := spec.Attrs["ttl"]; ttl != "" && ttl != current.Attr("ttl") {
		return true
	}
	return false
}

func recordTypeOf(spec types.ResourceSpec) string {
	if t := spec.Attrs["type"]; t != "" {
		return t
	}
	return "A"
}

func recordRequest(spec types.ResourceSpec) *godo.DomainRecordEditRequest {
	return &godo.DomainRecordEditRequest{
		Type: recordTypeOf(spec),
		Name: spec.Name,
		Data: spec.Attrs["data"],
		TTL:  intAttr(spec.Attrs, "ttl", 1800),
	}
}

func recordResource(domain string, r godo.DomainRecord) types.Resource {
	return types.Resource{
		ID:   strconv.Itoa(r.ID),
		Kind: "domain_record",
		Name: r.Name,
		Attrs: map[string]string{
			"domain": domain,
			"type":   r.Type,
			"data":   r.Data,
			"ttl":    strconv.Itoa(r.TTL),
		},
	}
}
