package sink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/logicflow/internal/engine"
	"github.com/roach88/logicflow/internal/ir"
)

func runDoc(t *testing.T, src string, opts ...engine.Option) (*engine.Result, error) {
	t.Helper()
	doc, err := ir.ParseDocument("test", []byte(src))
	require.NoError(t, err)
	opts = append([]engine.Option{engine.WithHTTP(engine.NewMockHTTP(nil))}, opts...)
	return engine.New(opts...).Run(t.Context(), doc, engine.RunOptions{})
}
