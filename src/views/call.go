package views

import (
	"errors"
	"fmt"

	"github.com/toolgate/gateway-client/src/json"
	"github.com/toolgate/gateway-client/src/tools"
	gwhttp "github.com/toolgate/gateway-client/src/transports/http"
)

// CallResult shows the outcome of a manual tool call. Domain errors are
// shown distinctly from success.
func (r *Renderer) CallResult(name string, res *tools.CallResult) error {
	if res == nil {
		res = &tools.CallResult{}
	}
	if ok, err := r.encode(res); ok {
		return err
	}

	if !res.OK {
		if err := r.println(r.st.err.Render("✗ "+name+" returned an error:"), res.Err().Error()); err != nil {
			return err
		}
		if res.Error != nil && res.Error.Details != nil {
			if err := r.block(json.Pretty(res.Error.Details)); err != nil {
				return err
			}
		}
		return r.callContext(res)
	}

	if err := r.println(r.st.success.Render("✓ " + name + " succeeded")); err != nil {
		return err
	}
	if err := r.block(payload(res.Data)); err != nil {
		return err
	}
	return r.callContext(res)
}

func (r *Renderer) callContext(res *tools.CallResult) error {
	if res.Context == nil || res.Context.RequestID == "" {
		return nil
	}
	return r.println(r.st.faint.Render("request " + res.Context.RequestID))
}

func payload(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		return json.Pretty(v)
	}
	return tools.PayloadText(v)
}

// failure is the structured form of a request error.
type failure struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Code       string `json:"code,omitempty"`
	URL        string `json:"url,omitempty"`
	Excerpt    string `json:"excerpt,omitempty"`
	Hint       string `json:"hint,omitempty"`
}

func classify(err error) failure {
	var (
		transport *gwhttp.TransportError
		status    *gwhttp.StatusError
		bad       *gwhttp.PayloadError
		domain    *tools.ToolError
	)
	switch {
	case errors.As(err, &transport):
		kind := "transport"
		if transport.Timeout() {
			kind = "timeout"
		}
		return failure{Kind: kind, Message: err.Error(), URL: transport.URL, Hint: transport.Hint()}
	case errors.As(err, &status):
		f := failure{Kind: "status", Message: err.Error(), StatusCode: status.StatusCode, URL: status.URL, Excerpt: status.Excerpt}
		if status.Domain != nil {
			f.Code = status.Domain.Code
		}
		return f
	case errors.As(err, &bad):
		return failure{Kind: "payload", Message: err.Error(), URL: bad.URL, Excerpt: bad.Excerpt}
	case errors.As(err, &domain):
		return failure{Kind: "domain", Message: domain.Error(), Code: domain.Code}
	default:
		return failure{Kind: "error", Message: err.Error()}
	}
}

// Failure shows a request error. Transport, status and payload failures
// are labelled differently so the user can tell them apart.
func (r *Renderer) Failure(err error) error {
	if err == nil {
		return nil
	}
	f := classify(err)
	if ok, encErr := r.encode(f); ok {
		return encErr
	}

	var label string
	switch f.Kind {
	case "transport", "timeout":
		label = "Connection failed:"
	case "status":
		label = fmt.Sprintf("Gateway returned HTTP %d:", f.StatusCode)
	case "payload":
		label = "Unexpected response:"
	case "domain":
		label = "Tool error:"
	default:
		label = "Error:"
	}
	if err := r.println(r.st.err.Render(label), f.Message); err != nil {
		return err
	}
	if f.Excerpt != "" && f.Kind == "payload" {
		if err := r.block(r.st.faint.Render(f.Excerpt)); err != nil {
			return err
		}
	}
	if f.Hint != "" {
		return r.println(r.st.warning.Render(f.Hint))
	}
	return nil
}
