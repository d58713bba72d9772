package filters

// Params holds a stream's /DecodeParms as plain Go values: int, float64,
// bool and string.
type Params map[string]any

// Int returns the integer under key, or def when it is absent or not a
// number.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the boolean under key, or def.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}
