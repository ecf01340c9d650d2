// Package policy evaluates Rego policies against planned decisions
// before they execute. A policy can only block; it never executes
// anything itself.
package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/types"
)

// GateInput is the document handed to every policy evaluation.
type GateInput struct {
	Decision  types.Decision `json:"decision"`
	Timestamp time.Time      `json:"timestamp"`
}

// Gate holds compiled policies and evaluates decisions against them.
type Gate struct {
	queries map[string]rego.PreparedEvalQuery
	log     zerolog.Logger
}

// NewGate creates an empty gate. With no policies loaded everything is
// allowed.
func NewGate(log zerolog.Logger) *Gate {
	return &Gate{
		queries: make(map[string]rego.PreparedEvalQuery),
		log:     log.With().Str("component", "policy").Logger(),
	}
}

// LoadPolicy compiles one Rego module and registers it under name.
func (g *Gate) LoadPolicy(ctx context.Context, name, regoCode string) error {
	query := rego.New(
		rego.Query("data.atoll"),
		rego.Module(name, regoCode),
	)

	prepared, err := query.PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("failed to compile policy %s: %w", name, err)
	}

	g.queries[name] = prepared
	g.log.Info().Str("policy", name).Msg("policy loaded")
	return nil
}

// LoadDir loads every .rego file under dir.
func (g *Gate) LoadDir(ctx context.Context, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("policy path does not exist: %s", dir)
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !strings.HasSuffix(path, ".rego") {
			return nil
		}
		return g.loadFile(ctx, dir, path)
	})
}

func (g *Gate) loadFile(ctx context.Context, dir, path string) error {
	if err := validatePath(dir, path); err != nil {
		return fmt.Errorf("invalid policy path %s: %w", path, err)
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read policy file %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), ".rego")
	return g.LoadPolicy(ctx, name, string(content))
}

// Allow evaluates every loaded policy against the decision. Any deny
// verdict blocks; no verdicts means allow.
func (g *Gate) Allow(ctx context.Context, decision types.Decision) (bool, string, error) {
	if len(g.queries) == 0 {
		return true, "", nil
	}

	input := GateInput{Decision: decision, Timestamp: time.Now()}

	for name, query := range g.queries {
		results, err := query.Eval(ctx, rego.EvalInput(input))
		if err != nil {
			return false, "", fmt.Errorf("policy %s: %w", name, err)
		}

		for _, v := range parseVerdicts(results) {
			if v.decision == "deny" {
				g.log.Warn().
					Str("policy", name).
					Str("op", decision.Op).
					Str("kind", decision.ResourceKind).
					Str("reason", v.reason).
					Msg("decision blocked")
				return false, v.reason, nil
			}
		}
	}

	return true, "", nil
}

type verdict struct {
	decision string
	reason   string
}

// parseVerdicts walks the evaluated document. Policies live in
// sub-packages of data.atoll, so verdict fields sit one level down;
// a flat document is accepted too.
func parseVerdicts(results rego.ResultSet) []verdict {
	var out []verdict

	for _, res := range results {
		for _, expr := range res.Expressions {
			doc, ok := expr.Value.(map[string]interface{})
			if !ok {
				continue
			}

			if v, ok := extractVerdict(doc); ok {
				out = append(out, v)
				continue
			}
			for _, sub := range doc {
				if subDoc, ok := sub.(map[string]interface{}); ok {
					if v, ok := extractVerdict(subDoc); ok {
						out = append(out, v)
					}
				}
			}
		}
	}

	return out
}

func extractVerdict(doc map[string]interface{}) (verdict, bool) {
	decision, ok := doc["decision"].(string)
	if !ok {
		return verdict{}, false
	}
	v := verdict{decision: decision}
	if reason, ok := doc["reason"].(string); ok {
		v.reason = reason
	}
	return v, true
}

func validatePath(dir, path string) error {
	relPath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to resolve relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") {
		return fmt.Errorf("path traversal detected")
	}
	return nil
}
