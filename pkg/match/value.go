package match

import (
	"fmt"
	"strings"
)

// traverse walks a nested map by key path. The top-level key is compared
// case-insensitively (grain and pillar names are case-normalized);
// deeper segments are exact. Missing intermediate keys are a non-match,
// not an error.
func traverse(m map[string]any, path []string) (any, bool) {
	if m == nil || len(path) == 0 {
		return nil, false
	}
	cur, ok := lookupFold(m, path[0])
	if !ok {
		return nil, false
	}
	for _, seg := range path[1:] {
		mm, isMap := cur.(map[string]any)
		if !isMap {
			return nil, false
		}
		cur, ok = mm[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func lookupFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// anyLeafValue applies the pattern to the leaf, or to any element when
// the leaf is a collection. Map leaves never match.
func anyLeafValue(v any, match func(string) bool) bool {
	switch t := v.(type) {
	case []any:
		for _, it := range t {
			if anyLeafValue(it, match) {
				return true
			}
		}
		return false
	case map[string]any:
		return false
	case nil:
		return false
	default:
		return match(toString(t))
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
