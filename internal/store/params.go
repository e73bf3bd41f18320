package store

import (
	"strconv"
)

// SplitParams separates RunSQL parameters into positional values, ordered by
// their numeric keys starting at "1", and named values. Positional keys stop
// at the first gap.
func SplitParams(params map[string]any) ([]any, map[string]any) {
	positional := make([]any, 0, len(params))
	for i := 1; ; i++ {
		val, ok := params[strconv.Itoa(i)]
		if !ok {
			break
		}
		positional = append(positional, val)
	}

	named := make(map[string]any)
	for key, val := range params {
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(positional) {
			continue
		}
		named[key] = val
	}
	return positional, named
}
