package demo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/meshstream/agent"
	"github.com/hupe1980/meshstream/planner"
	"github.com/hupe1980/meshstream/supervisor"
	"github.com/hupe1980/meshstream/tool"
)

// Kinds lists the built-in worker kinds.
var Kinds = []string{"research", "analysis"}

// ResearchPlanner routes research requests to the search operations.
func ResearchPlanner() planner.Planner {
	return NewRouter("research",
		Route{Operation: "academic_search", Keywords: []string{"paper", "academic", "study", "studies", "journal"}, Args: argument("topic")},
		Route{Operation: "google_search", Keywords: []string{"news", "search", "latest", "find", "web"}, Args: argument("query")},
	)
}

// AnalysisPlanner routes analysis requests to the analysis operations.
func AnalysisPlanner() planner.Planner {
	return NewRouter("analysis",
		Route{Operation: "market_analysis", Keywords: []string{"market", "sector", "trend", "company"}, Args: argument("company_or_sector")},
		Route{Operation: "technical_analysis", Keywords: []string{"technical", "stock", "symbol", "chart", "rsi", "macd"}, Args: func(s string) map[string]any {
			return map[string]any{"symbol": ticker(s)}
		}},
	)
}

var delegateKeywords = map[string][]string{
	"research": {"research", "news", "paper", "search", "find", "latest"},
	"analysis": {"analy", "market", "stock", "technical", "invest"},
}

// SupervisorPlanner routes a request to workers by keyword. workers maps a
// worker name to its kind; a worker of unknown kind is selected when the
// request mentions its name.
func SupervisorPlanner(workers map[string]string) planner.Planner {
	names := make([]string, 0, len(workers))
	for name := range workers {
		names = append(names, name)
	}
	sort.Strings(names)

	routes := make([]Route, 0, len(names))
	for _, name := range names {
		keywords, ok := delegateKeywords[workers[name]]
		if !ok {
			keywords = []string{strings.ToLower(name)}
		}
		routes = append(routes, Route{Operation: supervisor.DelegateName(name), Keywords: keywords, Args: argument("task")})
	}
	return NewRouter("supervisor", routes...)
}

// Operations returns the operations of a worker kind.
func Operations(kind string) ([]tool.Operation, error) {
	switch kind {
	case "research":
		return []tool.Operation{GoogleSearch(), AcademicSearch()}, nil
	case "analysis":
		return []tool.Operation{MarketAnalysis(), TechnicalAnalysis()}, nil
	default:
		return nil, fmt.Errorf("unknown demo worker %q", kind)
	}
}

// Planner returns the routing planner of a worker kind.
func Planner(kind string) (planner.Planner, error) {
	switch kind {
	case "research":
		return ResearchPlanner(), nil
	case "analysis":
		return AnalysisPlanner(), nil
	default:
		return nil, fmt.Errorf("unknown demo worker %q", kind)
	}
}

// NewWorker builds the runtime of a built-in worker kind under name. A nil
// planner selects the kind's routing planner.
func NewWorker(kind, name string, p planner.Planner, optFns ...func(o *agent.Options)) (*agent.Runtime, error) {
	ops, err := Operations(kind)
	if err != nil {
		return nil, err
	}
	if p == nil {
		if p, err = Planner(kind); err != nil {
			return nil, err
		}
	}
	registry, err := tool.NewRegistry(ops...)
	if err != nil {
		return nil, err
	}
	return agent.New(name, p, registry, optFns...), nil
}
