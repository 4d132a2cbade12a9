package store

import "strconv"

// Bundle is a flat map of scalar fields stored under one key.
// Readers never fail: an absent or unparseable field yields the default.
type Bundle map[string]string

func (b Bundle) String(key, def string) string {
	if v, ok := b[key]; ok {
		return v
	}
	return def
}

func (b Bundle) Int(key string, def int) int {
	if v, ok := b[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (b Bundle) Int64(key string, def int64) int64 {
	if v, ok := b[key]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func (b Bundle) Bool(key string, def bool) bool {
	if v, ok := b[key]; ok {
		if x, err := strconv.ParseBool(v); err == nil {
			return x
		}
	}
	return def
}

func (b Bundle) SetString(key, v string) { b[key] = v }

func (b Bundle) SetInt(key string, v int) { b[key] = strconv.Itoa(v) }

func (b Bundle) SetInt64(key string, v int64) { b[key] = strconv.FormatInt(v, 10) }

func (b Bundle) SetBool(key string, v bool) { b[key] = strconv.FormatBool(v) }

// Clone returns an independent copy.
func (b Bundle) Clone() Bundle {
	out := make(Bundle, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
