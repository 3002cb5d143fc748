package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for future algorithm migration.
const (
	DomainDocument = "logicflow/document/v1"
	DomainResult   = "logicflow/result/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash returns a stable identity for a bound document.
// Two documents with the same triggers, steps, edges and parameters hash
// equally regardless of whitespace or key order in the source JSON. Step order
// is part of the identity because it decides tie-breaking during sorting.
func DocumentHash(doc *Document) (string, error) {
	triggers := make([]any, len(doc.Triggers))
	for i, t := range doc.Triggers {
		obj := map[string]any{
			"name":   t.Name,
			"kind":   string(t.Kind),
			"inputs": t.Inputs,
		}
		if t.Recurrence != nil {
			obj["recurrence"] = map[string]any{
				"frequency": t.Recurrence.Frequency,
				"interval":  int64(t.Recurrence.Interval),
			}
		}
		triggers[i] = obj
	}

	steps := make([]any, len(doc.Steps))
	for i, s := range doc.Steps {
		deps := make([]any, len(s.Dependencies))
		for j, d := range s.Dependencies {
			deps[j] = d.Name
		}
		steps[i] = map[string]any{
			"name":         s.Name,
			"kind":         string(s.Kind),
			"inputs":       s.Inputs,
			"dependencies": deps,
		}
	}

	params := make(map[string]any, len(doc.Parameters))
	for name, p := range doc.Parameters {
		params[name] = map[string]any{"type": p.Type, "default": p.DefaultValue}
	}

	canonical, err := MarshalCanonical(map[string]any{
		"triggers":   triggers,
		"steps":      steps,
		"parameters": params,
	})
	if err != nil {
		return "", fmt.Errorf("DocumentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// ResultHash returns a stable identity for a step result value.
func ResultHash(value any) (string, error) {
	canonical, err := MarshalCanonical(value)
	if err != nil {
		return "", fmt.Errorf("ResultHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}
