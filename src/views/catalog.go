package views

import (
	"fmt"
	"strings"

	"github.com/toolgate/gateway-client/src/json"
	"github.com/toolgate/gateway-client/src/tools"
)

// Discovery lists the tools of a catalog, one card per tool.
func (r *Renderer) Discovery(list []tools.Tool) error {
	if list == nil {
		list = []tools.Tool{}
	}
	if ok, err := r.encode(list); ok {
		return err
	}

	if len(list) == 0 {
		return r.println(r.st.faint.Render("No tools available. Check the gateway URL and your scopes."))
	}
	if err := r.println(r.st.title.Render(fmt.Sprintf("%d tools", len(list)))); err != nil {
		return err
	}
	for _, t := range list {
		if err := r.toolCard(t, false); err != nil {
			return err
		}
	}
	return nil
}

// Tool renders a single catalog entry including its parameter schema.
func (r *Renderer) Tool(t tools.Tool) error {
	if ok, err := r.encode(t); ok {
		return err
	}
	return r.toolCard(t, true)
}

func (r *Renderer) toolCard(t tools.Tool, schema bool) error {
	var b strings.Builder
	b.WriteString(r.st.accent.Render(t.Name))
	if t.Domain != "" {
		b.WriteString(" " + r.st.faint.Render("["+t.Domain+"]"))
	}
	b.WriteString("\n")
	if t.Description != "" {
		b.WriteString(r.st.indent.Render(t.Description) + "\n")
	}
	scopes := "none"
	if len(t.RequiredScopes) > 0 {
		scopes = strings.Join(t.RequiredScopes, ", ")
	}
	b.WriteString(r.st.indent.Render(r.st.faint.Render("scopes: ")+scopes) + "\n")
	if schema && t.Parameters != nil {
		b.WriteString(r.st.indent.Render(r.st.faint.Render("parameters:")) + "\n")
		b.WriteString(r.st.indent.Render(json.Pretty(t.Parameters)) + "\n")
	}
	_, err := fmt.Fprint(r.w, b.String())
	return err
}
