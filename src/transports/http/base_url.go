package http

import (
	"net/url"
	"strings"
)

// DeriveBaseURL maps a configured gateway endpoint to the REST base URL by
// dropping trailing slashes and any trailing "/mcp" path segments. A URL
// without that suffix comes back unchanged apart from trailing slashes.
// DeriveBaseURL(DeriveBaseURL(u)) == DeriveBaseURL(u) for every u.
func DeriveBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return trimMCP(raw)
	}
	u.Path = trimMCP(u.Path)
	u.RawPath = ""
	return u.String()
}

// MCPEndpoint returns the JSON-RPC endpoint that lives next to the REST API.
func MCPEndpoint(raw string) string {
	base := DeriveBaseURL(raw)
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base + "/mcp"
	}
	u.Path += "/mcp"
	return u.String()
}

// JoinURL appends an escaped request path to base. A query on base is kept
// and merged with any query on path.
func JoinURL(base, path string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return base + path
	}
	escaped := strings.TrimRight(u.EscapedPath(), "/") + ref.EscapedPath()
	u.Path = strings.TrimRight(u.Path, "/") + ref.Path
	u.RawPath = escaped
	switch {
	case u.RawQuery == "":
		u.RawQuery = ref.RawQuery
	case ref.RawQuery != "":
		u.RawQuery += "&" + ref.RawQuery
	}
	u.Fragment, u.RawFragment = "", ""
	return u.String()
}

func trimMCP(s string) string {
	s = strings.TrimRight(s, "/")
	for strings.HasSuffix(s, "/mcp") {
		s = strings.TrimRight(strings.TrimSuffix(s, "/mcp"), "/")
	}
	return s
}
