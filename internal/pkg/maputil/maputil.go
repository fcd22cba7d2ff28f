// Package maputil reads loosely typed fields out of decoded JSON objects,
// such as the raw venue order echoed back by a live placement.
package maputil

import (
	"fmt"
	"strings"

	"signaldesk/internal/pkg/convert"
)

func String(params map[string]any, key string) string {
	raw, ok := params[key]
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", raw))
}

func Float(params map[string]any, key string) float64 {
	return convert.ToFloat64(params[key])
}

// Int64 returns ok=false when the key is missing or not integral.
func Int64(params map[string]any, key string) (int64, bool) {
	raw, ok := params[key]
	if !ok {
		return 0, false
	}
	return convert.ToInt64(raw)
}
