package views

import (
	"fmt"
	"time"
)

// SessionStatus summarizes one client session.
type SessionStatus struct {
	ID               string     `json:"id"`
	StartedAt        time.Time  `json:"started_at"`
	GatewayURL       string     `json:"gateway_url"`
	BaseURL          string     `json:"base_url"`
	MCPEndpoint      string     `json:"mcp_endpoint"`
	Tools            int        `json:"tools"`
	CatalogFetchedAt *time.Time `json:"catalog_fetched_at,omitempty"`
	Messages         int        `json:"messages"`
	Model            string     `json:"model"`
	ModelError       string     `json:"model_error,omitempty"`
	Protocol         string     `json:"protocol"`
	MaxIterations    int        `json:"max_iterations"`
}

// Session shows where a session talks to and what it holds.
func (r *Renderer) Session(st SessionStatus) error {
	if ok, err := r.encode(st); ok {
		return err
	}
	fetched := "never"
	if st.CatalogFetchedAt != nil {
		fetched = st.CatalogFetchedAt.Format("15:04:05")
	}
	model := st.Model
	if st.ModelError != "" {
		model = r.st.warning.Render("unavailable") + " " + st.ModelError
	}
	rows := [][2]string{
		{"session", st.ID},
		{"started", st.StartedAt.Format(time.RFC3339)},
		{"gateway", st.GatewayURL},
		{"rest", st.BaseURL},
		{"mcp", st.MCPEndpoint},
		{"tools", fmt.Sprintf("%d (fetched %s)", st.Tools, fetched)},
		{"messages", fmt.Sprint(st.Messages)},
		{"model", model},
		{"agent", fmt.Sprintf("%s protocol, at most %d model calls per turn", st.Protocol, st.MaxIterations)},
	}
	for _, row := range rows {
		if err := r.println(r.st.faint.Render(row[0]+":"), row[1]); err != nil {
			return err
		}
	}
	return nil
}
