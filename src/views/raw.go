package views

import (
	"fmt"

	"github.com/toolgate/gateway-client/src/headers"
	"github.com/toolgate/gateway-client/src/json"
	gwhttp "github.com/toolgate/gateway-client/src/transports/http"
)

// Raw shows an uninterpreted gateway reply as {status_code, response}.
func (r *Renderer) Raw(resp *gwhttp.RawResponse) error {
	if resp == nil {
		resp = &gwhttp.RawResponse{}
	}
	if ok, err := r.encode(resp); ok {
		return err
	}
	_, err := fmt.Fprintln(r.w, json.Pretty(resp))
	return err
}

// Headers shows the header set sent with every request.
func (r *Renderer) Headers(h headers.Set) error {
	if ok, err := r.encode(h); ok {
		return err
	}
	for _, k := range h.Keys() {
		if err := r.println(r.st.faint.Render(k+":"), h[k]); err != nil {
			return err
		}
	}
	return nil
}

// Health shows the gateway health document.
func (r *Renderer) Health(url string, status map[string]any) error {
	if ok, err := r.encode(status); ok {
		return err
	}
	state, _ := status["status"].(string)
	label := r.st.success.Render("● " + state)
	if state != "ok" {
		label = r.st.warning.Render("● " + state)
	}
	if err := r.println(label, url); err != nil {
		return err
	}
	for _, k := range []string{"service", "timestamp"} {
		if v, ok := status[k]; ok {
			if err := r.block(r.st.faint.Render(k+": ") + fmt.Sprint(v)); err != nil {
				return err
			}
		}
	}
	return nil
}
