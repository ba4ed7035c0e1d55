// Package headers assembles the request headers forwarded to the gateway.
// Values are passed through untouched; the gateway decides what a tenant,
// actor or scope means.
package headers

import (
	"net/http"
	"sort"
	"strings"
)

const (
	ContentType = "Content-Type"
	TenantID    = "x-tenant-id"
	ActorID     = "x-actor-id"
	Scopes      = "x-scopes"
	RequestID   = "x-request-id"
)

// order is the display order of the known header names.
var order = []string{ContentType, TenantID, ActorID, Scopes}

// Fields are the user editable inputs a Set is built from.
type Fields struct {
	TenantID string `yaml:"tenant_id" json:"tenant_id"`
	ActorID  string `yaml:"actor_id" json:"actor_id"`
	// Scopes is raw text: comma separated, newline separated, or both.
	Scopes string `yaml:"scopes" json:"scopes"`
}

// Set maps header name to value.
type Set map[string]string

// Build turns the current field values into a header Set. Tenant and actor
// headers are only present when non-empty; the scopes header is only
// present when at least one scope token survives trimming.
func Build(f Fields) Set {
	h := Set{ContentType: "application/json"}
	if f.TenantID != "" {
		h[TenantID] = f.TenantID
	}
	if f.ActorID != "" {
		h[ActorID] = f.ActorID
	}
	if scopes := ParseScopes(f.Scopes); len(scopes) > 0 {
		h[Scopes] = strings.Join(scopes, ",")
	}
	return h
}

// ParseScopes splits text on newlines and then commas, trims every token and
// drops empty ones. Order and duplicates are preserved.
func ParseScopes(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, tok := range strings.Split(line, ",") {
			tok = strings.TrimSpace(tok)
			if tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}

// Keys returns the header names present in h, known headers first in their
// fixed order, followed by any extra names sorted.
func (h Set) Keys() []string {
	keys := make([]string, 0, len(h))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		seen[k] = true
		if _, ok := h[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range h {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// Apply copies every header in h onto req.
func (h Set) Apply(req *http.Request) {
	for k, v := range h {
		req.Header.Set(k, v)
	}
}
