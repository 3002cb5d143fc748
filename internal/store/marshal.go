package store

import (
	"fmt"
	"time"

	"github.com/roach88/logicflow/internal/ir"
)

// timeLayout is how timestamps are stored. It sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// marshalResult converts a step result to canonical JSON TEXT and its hash.
func marshalResult(result any) (string, string, error) {
	data, err := ir.MarshalCanonical(ir.Normalize(result))
	if err != nil {
		return "", "", fmt.Errorf("marshal result: %w", err)
	}
	hash, err := ir.ResultHash(ir.Normalize(result))
	if err != nil {
		return "", "", fmt.Errorf("hash result: %w", err)
	}
	return string(data), hash, nil
}

// unmarshalResult parses stored canonical JSON. Integers come back as int64.
func unmarshalResult(data string) (any, error) {
	v, err := ir.DecodeValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return v, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
