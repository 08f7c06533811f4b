package demo

import (
	"fmt"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/tool"
)

type googleSearchArgs struct {
	Query string `json:"query" jsonschema:"the search query"`
}

type academicSearchArgs struct {
	Topic string `json:"topic" jsonschema:"the research topic"`
}

type marketAnalysisArgs struct {
	CompanyOrSector string `json:"company_or_sector" jsonschema:"company or sector to analyze"`
}

type technicalAnalysisArgs struct {
	Symbol string `json:"symbol" jsonschema:"stock ticker symbol"`
}

// GoogleSearch searches the web for a topic.
func GoogleSearch() tool.Operation {
	return tool.MustTyped("google_search", "Search Google for information about a topic.",
		func(tc *core.ToolContext, in googleSearchArgs) (any, error) {
			tc.Emit("search_started", map[string]any{"query": in.Query, "source": "google"})
			tc.Emit("search_progress", map[string]any{"status": "fetching_results"})
			tc.Emit("search_completed", map[string]any{"results_count": 10, "source": "google"})

			return fmt.Sprintf("Found 10 Google results for '%s'. Top results include recent news articles and relevant websites.", in.Query), nil
		})
}

// AcademicSearch searches academic databases for papers.
func AcademicSearch() tool.Operation {
	return tool.MustTyped("academic_search", "Search academic databases for research papers on a topic.",
		func(tc *core.ToolContext, in academicSearchArgs) (any, error) {
			tc.Emit("academic_search_started", map[string]any{"topic": in.Topic, "databases": []string{"arxiv", "pubmed"}})
			tc.Emit("database_queried", map[string]any{"database": "arxiv", "papers_found": 15})
			tc.Emit("database_queried", map[string]any{"database": "pubmed", "papers_found": 8})
			tc.Emit("academic_search_completed", map[string]any{"total_papers": 23})

			return fmt.Sprintf("Found 23 academic papers on '%s' from arXiv and PubMed. Recent publications show significant developments in the field.", in.Topic), nil
		})
}

// MarketAnalysis analyzes market trends for a company or sector.
func MarketAnalysis() tool.Operation {
	return tool.MustTyped("market_analysis", "Analyze market trends for a company or sector.",
		func(tc *core.ToolContext, in marketAnalysisArgs) (any, error) {
			tc.Emit("market_analysis_started", map[string]any{"target": in.CompanyOrSector})
			tc.Emit("data_collection", map[string]any{"sources": []string{"financial_reports", "market_data", "news"}})
			tc.Emit("trend_analysis", map[string]any{"trend_direction": "bullish", "confidence": 0.78})
			tc.Emit("risk_assessment", map[string]any{"risk_level": "moderate", "key_risks": 3})
			tc.Emit("market_analysis_completed", map[string]any{"recommendation": "buy", "target_price": 125.50})

			return fmt.Sprintf("Market analysis for %s: Bullish trend with 78%% confidence. Recommendation: BUY with target price $125.50. Identified 3 key risks.", in.CompanyOrSector), nil
		})
}

// TechnicalAnalysis performs technical analysis on a stock symbol.
func TechnicalAnalysis() tool.Operation {
	return tool.MustTyped("technical_analysis", "Perform technical analysis on a stock symbol.",
		func(tc *core.ToolContext, in technicalAnalysisArgs) (any, error) {
			tc.Emit("technical_analysis_started", map[string]any{"symbol": in.Symbol})
			tc.Emit("indicator_calculated", map[string]any{"indicator": "RSI", "value": 65.4})
			tc.Emit("indicator_calculated", map[string]any{"indicator": "MACD", "signal": "bullish_crossover"})
			tc.Emit("support_resistance", map[string]any{"support": 118.20, "resistance": 127.80})
			tc.Emit("pattern_detected", map[string]any{"pattern": "ascending_triangle", "breakout_probability": 0.72})
			tc.Emit("technical_analysis_completed", map[string]any{"signal": "strong_buy", "confidence": 0.85})

			return fmt.Sprintf("Technical analysis for %s: Strong BUY signal with 85%% confidence. RSI at 65.4, MACD shows bullish crossover. Ascending triangle pattern detected with 72%% breakout probability.", in.Symbol), nil
		})
}
