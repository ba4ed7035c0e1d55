package tools

// defaultArgs are starter argument objects for the gateway's demo tools.
var defaultArgs = map[string]map[string]any{
	"hello":              {"name": ""},
	"list-top-customers": {"limit": 5},
	"sum":                {"a": 0, "b": 0},
	"normalize-text":     {"text": "", "mode": "lower"},
}

// DefaultArguments returns a fresh copy of the starter arguments for name,
// or an empty object for unknown tools.
func DefaultArguments(name string) map[string]any {
	out := map[string]any{}
	for k, v := range defaultArgs[name] {
		out[k] = v
	}
	return out
}
