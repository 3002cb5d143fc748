package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/logicflow/internal/ir"
)

// goLiteral renders a normalized value as a Go expression of the same
// dynamic type. Object keys are written in canonical order.
func goLiteral(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "nil", nil
	case bool:
		return strconv.FormatBool(val), nil
	case string:
		return strconv.Quote(val), nil
	case int64:
		return "int64(" + strconv.FormatInt(val, 10) + ")", nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return "", fmt.Errorf("non-finite number %v", val)
		}
		return "float64(" + strconv.FormatFloat(val, 'g', -1, 64) + ")", nil
	case []any:
		elems := make([]string, len(val))
		for i, elem := range val {
			s, err := goLiteral(elem)
			if err != nil {
				return "", err
			}
			elems[i] = s
		}
		return "[]any{" + strings.Join(elems, ", ") + "}", nil
	case map[string]any:
		keys := ir.SortedKeys(val)
		entries := make([]string, len(keys))
		for i, k := range keys {
			s, err := goLiteral(val[k])
			if err != nil {
				return "", err
			}
			entries[i] = strconv.Quote(k) + ": " + s
		}
		return "map[string]any{" + strings.Join(entries, ", ") + "}", nil
	}
	return "", fmt.Errorf("unsupported value type %T", v)
}
