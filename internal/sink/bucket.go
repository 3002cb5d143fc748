package sink

import (
	"context"
	"errors"
	"fmt"
	"path"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/roach88/logicflow/internal/codegen"
	"github.com/roach88/logicflow/internal/ir"
)

// ErrNotFound is returned when a key does not exist in the bucket.
var ErrNotFound = errors.New("not found")

// Object names inside a unit's directory.
const (
	SourceFile    = "workflow.go"
	ArtifactsFile = "artifacts.json"
)

// Bucket stores emitted units and run outputs under a key prefix.
type Bucket struct {
	bucket *blob.Bucket
	prefix string
}

// OpenBucket opens the bucket at url. Keys are written under prefix.
func OpenBucket(ctx context.Context, url, prefix string) (*Bucket, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", url, err)
	}
	return &Bucket{bucket: b, prefix: prefix}, nil
}

// WriteUnit writes the unit's source and artifact manifest under name/ and
// returns the keys written.
func (b *Bucket) WriteUnit(ctx context.Context, name string, unit *codegen.Unit) ([]string, error) {
	manifest, err := ir.MarshalCanonical(artifactManifest(unit))
	if err != nil {
		return nil, fmt.Errorf("encode artifacts: %w", err)
	}

	sourceKey := b.key(name, SourceFile)
	artifactsKey := b.key(name, ArtifactsFile)
	if err := b.write(ctx, sourceKey, []byte(unit.Source), "text/x-go"); err != nil {
		return nil, err
	}
	if err := b.write(ctx, artifactsKey, manifest, "application/json"); err != nil {
		return nil, err
	}
	return []string{sourceKey, artifactsKey}, nil
}

// WriteOutputs stores a run's {step → result} table as canonical JSON and
// returns its key.
func (b *Bucket) WriteOutputs(ctx context.Context, runID string, outputs map[string]any) (string, error) {
	data, err := ir.MarshalCanonical(ir.Normalize(outputs))
	if err != nil {
		return "", fmt.Errorf("encode outputs: %w", err)
	}
	key := b.key("runs", runID+".json")
	if err := b.write(ctx, key, data, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// ReadOutputs loads outputs stored by WriteOutputs.
func (b *Bucket) ReadOutputs(ctx context.Context, runID string) (map[string]any, error) {
	data, err := b.Read(ctx, b.key("runs", runID+".json"))
	if err != nil {
		return nil, err
	}
	v, err := ir.DecodeValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode outputs: %w", err)
	}
	outputs, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode outputs: expected an object, got %s", ir.TypeName(v))
	}
	return outputs, nil
}

// Read returns the object stored at key, or ErrNotFound.
func (b *Bucket) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := b.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Close releases the bucket.
func (b *Bucket) Close() error {
	return b.bucket.Close()
}

func (b *Bucket) write(ctx context.Context, key string, data []byte, contentType string) error {
	opts := &blob.WriterOptions{ContentType: contentType}
	if err := b.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (b *Bucket) key(parts ...string) string {
	return b.prefix + path.Join(parts...)
}

func artifactManifest(unit *codegen.Unit) map[string]any {
	extensions := make(map[string]any, len(unit.Artifacts.Extensions))
	for module, version := range unit.Artifacts.Extensions {
		extensions[module] = version
	}
	settings := make([]any, len(unit.Artifacts.AppSettings))
	for i, s := range unit.Artifacts.AppSettings {
		settings[i] = s
	}
	activities := make([]any, len(unit.Activities))
	for i, a := range unit.Activities {
		activities[i] = a
	}
	return map[string]any{
		"package":     unit.Package,
		"extensions":  extensions,
		"appSettings": settings,
		"activities":  activities,
	}
}
