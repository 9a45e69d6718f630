package doctree

import "sort"

// Props is a free-form property bag. Values are JSON-shaped: nil, bool,
// float64, string, []any or map[string]any (integers are tolerated).
type Props map[string]any

// Clone returns a deep copy of p.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a new bag with o's entries layered over p's.
func (p Props) Merge(o Props) Props {
	out := make(Props, len(p)+len(o))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range o {
		out[k] = v
	}
	return out
}

// IsUnfinished reports whether p["finished"] is false.
func (p Props) IsUnfinished() bool {
	f, ok := p["finished"].(bool)
	return ok && !f
}

// String returns p[key] when it is a string.
func (p Props) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Keys returns the keys of p in sorted order.
func (p Props) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Without returns a copy of p lacking the given keys, or nil when nothing
// remains.
func (p Props) Without(keys ...string) Props {
	out := Props{}
	for k, v := range p {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = cloneValue(e)
		}
		return m
	case Props:
		return v.Clone()
	case []any:
		s := make([]any, len(v))
		for i, e := range v {
			s[i] = cloneValue(e)
		}
		return s
	case []map[string]any:
		s := make([]map[string]any, len(v))
		for i, e := range v {
			s[i] = cloneValue(e).(map[string]any)
		}
		return s
	default:
		return v
	}
}
