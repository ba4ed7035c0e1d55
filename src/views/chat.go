package views

import (
	"fmt"
	"strings"

	"github.com/toolgate/gateway-client/src/adk"
	"github.com/toolgate/gateway-client/src/json"
	"github.com/toolgate/gateway-client/src/session"
)

// Turn shows the tool calls made during an agent turn and its answer.
func (r *Renderer) Turn(res *adk.TurnResult) error {
	if res == nil {
		return nil
	}
	if ok, err := r.encode(res); ok {
		return err
	}
	for _, c := range res.Calls {
		if err := r.call(c); err != nil {
			return err
		}
	}
	return r.answer(string(res.Outcome), res.Answer, res.Iterations)
}

// Answer shows only the outcome of a turn, for callers that already
// streamed its progress through Event.
func (r *Renderer) Answer(res *adk.TurnResult) error {
	if res == nil {
		return nil
	}
	if ok, err := r.encode(res); ok {
		return err
	}
	return r.answer(string(res.Outcome), res.Answer, res.Iterations)
}

func (r *Renderer) call(c adk.CallRecord) error {
	line := r.st.faint.Render(fmt.Sprintf("→ %s %s", c.Tool, json.Compact(c.Arguments)))
	if err := r.println(line); err != nil {
		return err
	}
	style := r.st.faint
	if c.Error != "" {
		style = r.st.warning
	}
	return r.block(style.Render(firstLine(c.Feedback)))
}

func (r *Renderer) answer(outcome, text string, iterations int) error {
	switch adk.Outcome(outcome) {
	case adk.OutcomeFailed:
		return r.println(r.st.err.Render("assistant:"), text)
	case adk.OutcomeTruncated:
		if err := r.println(r.st.agent.Render("assistant:"), text); err != nil {
			return err
		}
		return r.println(r.st.warning.Render(fmt.Sprintf("(stopped after %d model calls; the answer may be incomplete)", iterations)))
	default:
		return r.println(r.st.agent.Render("assistant:"), text)
	}
}

// History shows the conversation so far.
func (r *Renderer) History(msgs []session.Message) error {
	if msgs == nil {
		msgs = []session.Message{}
	}
	if ok, err := r.encode(msgs); ok {
		return err
	}
	if len(msgs) == 0 {
		return r.println(r.st.faint.Render("No messages yet."))
	}
	for _, m := range msgs {
		stamp := r.st.faint.Render(m.Timestamp.Format("15:04:05"))
		if m.Role == adk.RoleUser {
			if err := r.println(stamp, r.st.user.Render("you:"), m.Content); err != nil {
				return err
			}
			continue
		}
		for _, c := range m.Calls {
			if err := r.call(c); err != nil {
				return err
			}
		}
		label := r.st.agent.Render("assistant:")
		if m.Outcome == adk.OutcomeFailed {
			label = r.st.err.Render("assistant:")
		}
		if err := r.println(stamp, label, m.Content); err != nil {
			return err
		}
	}
	return nil
}

// Event shows live agent progress. It is a no-op for structured formats
// so that their output stays one document.
func (r *Renderer) Event(ev adk.Event) {
	if r.format != FormatText {
		return
	}
	switch ev.Type {
	case adk.EventModelRequest:
		_ = r.println(r.st.faint.Render(fmt.Sprintf("… thinking (step %d)", ev.Iteration)))
	case adk.EventToolCall:
		_ = r.println(r.st.faint.Render(fmt.Sprintf("→ %s %s", ev.Tool, ev.Content)))
	case adk.EventToolResult:
		_ = r.block(r.st.faint.Render(firstLine(ev.Content)))
	case adk.EventError:
		_ = r.println(r.st.err.Render("agent error:"), ev.Content)
	}
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	if len([]rune(s)) > 160 {
		s = string([]rune(s)[:160]) + "…"
	}
	return s
}
