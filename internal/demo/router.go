package demo

import (
	"context"
	"regexp"
	"strings"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/planner"
)

// Route maps keywords in the latest user request to one operation call.
type Route struct {
	Operation string
	Keywords  []string
	// Args builds the call arguments from the request text.
	Args func(request string) map[string]any
}

func (r Route) matches(text string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Router is a deterministic planner: it calls every operation whose route
// matches the latest user request (the first route when none matches), then
// answers with the collected results.
type Router struct {
	name   string
	routes []Route
}

// NewRouter creates a Router. Routes are tried in order.
func NewRouter(name string, routes ...Route) *Router {
	return &Router{name: name, routes: routes}
}

// Decide implements planner.Planner.
func (r *Router) Decide(ctx context.Context, req planner.Request) (planner.Action, error) {
	if err := ctx.Err(); err != nil {
		return planner.Action{}, err
	}

	if results := planner.ToolResultsSince(req.Messages); len(results) > 0 {
		return planner.Final(summarize(results)), nil
	}

	request, err := planner.LastUserMessage(req.Messages)
	if err != nil {
		return planner.Action{}, err
	}
	text := strings.ToLower(request)

	available := map[string]bool{}
	for _, d := range req.Operations {
		available[d.Name] = true
	}

	var calls []core.ToolCall
	for _, route := range r.routes {
		if available[route.Operation] && route.matches(text) {
			calls = append(calls, planner.Call(route.Operation, route.Args(request)))
		}
	}
	if len(calls) == 0 {
		for _, route := range r.routes {
			if available[route.Operation] {
				calls = append(calls, planner.Call(route.Operation, route.Args(request)))
				break
			}
		}
	}
	if len(calls) == 0 {
		return planner.Final("I have no operation that can help with: " + request), nil
	}

	return planner.Invoke(calls...), nil
}

// Info implements planner.Planner.
func (r *Router) Info() planner.Info { return planner.Info{Name: r.name, Provider: "router"} }

func summarize(results []core.Message) string {
	parts := make([]string, 0, len(results))
	for _, m := range results {
		if m.IsError {
			parts = append(parts, m.Name+" failed: "+m.Content)
			continue
		}
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

var tickerPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// ticker extracts an upper-case symbol from text, falling back to the text.
func ticker(text string) string {
	if m := tickerPattern.FindString(text); m != "" {
		return m
	}
	return text
}

func argument(key string) func(string) map[string]any {
	return func(request string) map[string]any { return map[string]any{key: request} }
}
