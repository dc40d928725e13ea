// Package mountopts parses the FUSE `-o key=value[,key=value...]` option
// convention into a plain map, since pflag's own flag model doesn't cover
// repeated, comma-joined, bare-or-valued options the way mount(8)-style
// tools expect.
package mountopts

import "strings"

// Parse splits each -o argument's comma-separated list and merges them all
// into one map.
// A bare key (no "=") is recorded with an empty value, used for flag-style
// options like "readonly" or "allow_other". Later occurrences of the same
// key overwrite earlier ones, matching mount(8)'s own behavior.
func Parse(values []string) map[string]string {
	out := make(map[string]string)
	for _, value := range values {
		for _, pair := range strings.Split(value, ",") {
			if pair == "" {
				continue
			}
			if eq := strings.IndexByte(pair, '='); eq >= 0 {
				out[pair[:eq]] = pair[eq+1:]
			} else {
				out[pair] = ""
			}
		}
	}
	return out
}

// Has reports whether a bare or valued key was present.
func Has(opts map[string]string, key string) bool {
	_, ok := opts[key]
	return ok
}

// Get returns opts[key] and whether it was present.
func Get(opts map[string]string, key string) (string, bool) {
	v, ok := opts[key]
	return v, ok
}

// GetDefault returns opts[key], or fallback if absent or empty.
func GetDefault(opts map[string]string, key, fallback string) string {
	if v, ok := opts[key]; ok && v != "" {
		return v
	}
	return fallback
}
