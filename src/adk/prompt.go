package adk

import (
	"fmt"
	"strings"

	"github.com/toolgate/gateway-client/src/json"
	"github.com/toolgate/gateway-client/src/tools"
)

// SystemPrompt renders the tool catalog and the reply format for the model.
func SystemPrompt(catalog []tools.Tool, p Protocol) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant that can use tools exposed by a remote tool gateway.\n\n")

	if len(catalog) == 0 {
		sb.WriteString("No tools are currently available. Answer the user directly.\n")
	} else {
		sb.WriteString("AVAILABLE TOOLS\n")
		sb.WriteString("Use the exact tool names and argument keys listed below.\n\n")
		for _, t := range catalog {
			fmt.Fprintf(&sb, "TOOL: %s\n", t.Name)
			if t.Description != "" {
				fmt.Fprintf(&sb, "DESCRIPTION: %s\n", t.Description)
			}
			if t.Parameters != nil {
				fmt.Fprintf(&sb, "PARAMETERS: %s\n", json.Compact(t.Parameters))
			}
			sb.WriteString("\n")
		}
	}

	if p != nil {
		sb.WriteString(p.Instructions())
		sb.WriteString("\n")
	}
	return sb.String()
}
