package resources

import (
	"context"
	"fmt"
	"strings"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/await"
	"github.com/atoll-cloud/atoll/paginate"
	"github.com/atoll-cloud/atoll/types"
)

type firewallService interface {
	List(ctx context.Context, opt *godo.ListOptions) ([]godo.Firewall, *godo.Response, error)
	Get(ctx context.Context, id string) (*godo.Firewall, *godo.Response, error)
	Create(ctx context.Context, req *godo.FirewallRequest) (*godo.Firewall, *godo.Response, error)
	Update(ctx context.Context, id string, req *godo.FirewallRequest) (*godo.Firewall, *godo.Response, error)
	Delete(ctx context.Context, id string) (*godo.Response, error)
}

type firewallAdapter struct {
	firewalls firewallService
	defaults  Defaults
	log       zerolog.Logger
}

func newFirewallAdapter(firewalls firewallService, defaults Defaults, log zerolog.Logger) *firewallAdapter {
	return &firewallAdapter{firewalls: firewalls, defaults: defaults, log: log.With().Str("kind", "firewall").Logger()}
}

func (a *firewallAdapter) Kind() string { return "firewall" }

func (a *firewallAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	firewalls, err := paginate.All(ctx, a.firewalls.List, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing firewalls: %w", err)
	}

	out := make([]types.Resource, 0, len(firewalls))
	for _, f := range firewalls {
		out = append(out, firewallResource(f))
	}
	return out, nil
}

func (a *firewallAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	created, _, err := a.firewalls.Create(ctx, firewallRequest(spec))
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("creating firewall %q: %w", spec.Name, err)
	}
	a.log.Info().Str("firewall_id", created.ID).Msg("firewall create submitted")

	// Firewall rules are applied asynchronously: status moves from
	// "waiting" to "succeeded" (or "failed").
	last := created
	fetch := func(ctx context.Context) (string, error) {
		f, _, err := a.firewalls.Get(ctx, created.ID)
		if err != nil {
			return "", err
		}
		last = f
		return firewallPhase(f.Status), nil
	}

	res, err := await.Until(ctx, fetch, firewallPhase(created.Status), a.defaults.Await())
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("awaiting firewall %s: %w", created.ID, err)
	}
	if res.TimedOut {
		return CreateOutcome{}, &await.UnconfirmedError{Kind: "firewall", ID: created.ID, Status: last.Status}
	}
	if res.Errored() {
		return CreateOutcome{}, fmt.Errorf("firewall %s failed to apply", created.ID)
	}

	r := firewallResource(*last)
	return CreateOutcome{Resource: &r}, nil
}

func (a *firewallAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	updated, _, err := a.firewalls.Update(ctx, current.ID, firewallRequest(spec))
	if err != nil {
		return nil, fmt.Errorf("updating firewall %s: %w", current.ID, err)
	}
	r := firewallResource(*updated)
	return &r, nil
}

func (a *firewallAdapter) Delete(ctx context.Context, current types.Resource) error {
	if _, err := a.firewalls.Delete(ctx, current.ID); err != nil {
		return fmt.Errorf("deleting firewall %s: %w", current.ID, err)
	}
	return nil
}

func (a *firewallAdapter) Drifted(current types.Resource, spec types.ResourceSpec) bool {
	ports, declared := spec.Attrs["inbound_ports"]
	return declared && ports != current.Attr("inbound_ports")
}

// firewallRequest builds the create/update request. Inbound TCP ports
// come from the comma-separated inbound_ports attribute; sources
// default to everywhere.
func firewallRequest(spec types.ResourceSpec) *godo.FirewallRequest {
	req := &godo.FirewallRequest{Name: spec.Name, Tags: spec.Tags}
	for _, port := range splitPorts(spec.Attrs["inbound_ports"]) {
		req.InboundRules = append(req.InboundRules, godo.InboundRule{
			Protocol:  "tcp",
			PortRange: port,
			Sources:   &godo.Sources{Addresses: []string{"0.0.0.0/0", "::/0"}},
		})
	}
	return req
}

func splitPorts(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firewallPhase(status string) string {
	switch status {
	case "succeeded":
		return await.StatusCompleted
	case "failed":
		return await.StatusErrored
	default: // "waiting"
		return await.StatusInProgress
	}
}

func firewallResource(f godo.Firewall) types.Resource {
	var ports []string
	for _, rule := range f.InboundRules {
		ports = append(ports, rule.PortRange)
	}
	return types.Resource{
		ID:     f.ID,
		Kind:   "firewall",
		Name:   f.Name,
		Status: f.Status,
		Tags:   f.Tags,
		Attrs:  map[string]string{"inbound_ports": strings.Join(ports, ",")},
	}
}
