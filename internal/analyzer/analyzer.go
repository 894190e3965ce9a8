package analyzer

import (
	"github.com/probelabs/visor/internal/rpc"
)

// DefaultLevel is used when no analysis level is configured.
const DefaultLevel = "basic"

// Analyzer serves the code-analysis methods. The current implementation
// returns representative fixture data; a real engine would parse the file
// and compute metrics. The level is injected at construction and passed
// through to callers opaquely.
type Analyzer struct {
	level string
}

// New creates an analyzer operating at the given level.
func New(level string) *Analyzer {
	if level == "" {
		level = DefaultLevel
	}
	return &Analyzer{level: level}
}

// Level returns the configured analysis level.
func (a *Analyzer) Level() string {
	return a.level
}

// Registry builds the method table served over JSON-RPC. The returned
// registry is immutable for the lifetime of the server.
func (a *Analyzer) Registry() rpc.Registry {
	return rpc.Registry{
		"analyze_complexity":  a.analyzeComplexity,
		"find_patterns":       a.findPatterns,
		"suggest_refactoring": a.suggestRefactoring,
	}
}

func (a *Analyzer) analyzeComplexity(params map[string]interface{}) (interface{}, error) {
	file, _ := params["file"].(string)
	return map[string]interface{}{
		"file": file,
		"complexity": map[string]interface{}{
			"cyclomatic":    5,
			"cognitive":     8,
			"lines_of_code": 150,
			"functions":     10,
		},
		"level": a.level,
	}, nil
}

func (a *Analyzer) findPatterns(params map[string]interface{}) (interface{}, error) {
	file, _ := params["file"].(string)
	return []map[string]interface{}{
		{
			"pattern":  "singleton",
			"location": file + ":45",
			"type":     "design_pattern",
		},
		{
			"pattern":  "god_object",
			"location": file + ":120",
			"type":     "anti_pattern",
			"severity": "warning",
		},
	}, nil
}

func (a *Analyzer) suggestRefactoring(params map[string]interface{}) (interface{}, error) {
	return []string{
		"Consider extracting method at line 45-60",
		"Duplicate code detected at lines 120 and 180",
		"Complex conditional at line 95 could be simplified",
	}, nil
}
