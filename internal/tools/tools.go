package tools

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/madoguchin/internal/reasoner"
)

// Tool is one callable capability exposed to the model. Invocation results
// are data fed back into the reasoning loop; a failing tool reports the
// failure in its result rather than aborting the turn.
type Tool interface {
	Definition() reasoner.ToolDefinition
	Invoke(args map[string]any) (map[string]any, error)
}

type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Definition().Name
		if _, exists := r.tools[name]; exists {
			continue
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r
}

// DefaultRegistry returns the registry with the built-in customer-support
// tool set.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&currentTimeTool{now: time.Now},
		&logInformationTool{},
		&knowledgeBaseTool{},
	)
}

func (r *Registry) Definitions() []reasoner.ToolDefinition {
	defs := make([]reasoner.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Invoke dispatches a tool request by name. Unknown names yield a typed
// unsupported-tool result instead of an error so the model can recover.
func (r *Registry) Invoke(name string, args map[string]any) map[string]any {
	t, ok := r.tools[name]
	if !ok {
		slog.Warn("model requested unsupported tool", "tool", name)
		return map[string]any{
			"status": "unsupported_tool",
			"tool":   name,
			"error":  fmt.Sprintf("tool %q is not available", name),
		}
	}
	result, err := t.Invoke(args)
	if err != nil {
		slog.Warn("tool invocation failed", "tool", name, "error", err)
		return map[string]any{
			"status": "error",
			"tool":   name,
			"error":  err.Error(),
		}
	}
	return result
}

type currentTimeTool struct {
	now func() time.Time
}

func (t *currentTimeTool) Definition() reasoner.ToolDefinition {
	return reasoner.ToolDefinition{
		Name:        "get_current_time",
		Description: "Get the current date and time",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		},
	}
}

func (t *currentTimeTool) Invoke(_ map[string]any) (map[string]any, error) {
	return map[string]any{
		"status": "success",
		"time":   t.now().Format("2006-01-02 15:04:05"),
	}, nil
}

type logInformationTool struct{}

func (t *logInformationTool) Definition() reasoner.ToolDefinition {
	return reasoner.ToolDefinition{
		Name:        "log_information",
		Description: "Log a piece of information gathered from the customer",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"category": map[string]any{
					"type":        "string",
					"description": "The type of information (e.g., 'issue_type', 'customer_name')",
				},
				"value": map[string]any{
					"type":        "string",
					"description": "The actual information value",
				},
			},
			"required": []string{"category", "value"},
		},
	}
}

func (t *logInformationTool) Invoke(args map[string]any) (map[string]any, error) {
	category := stringArg(args, "category")
	value := stringArg(args, "value")
	if category == "" || value == "" {
		return nil, fmt.Errorf("log_information requires category and value")
	}
	return map[string]any{
		"status":    "logged",
		"category":  category,
		"value":     value,
		"timestamp": time.Now().Format(time.RFC3339),
	}, nil
}

type knowledgeBaseTool struct{}

func (t *knowledgeBaseTool) Definition() reasoner.ToolDefinition {
	return reasoner.ToolDefinition{
		Name:        "search_knowledge_base",
		Description: "Search the knowledge base for relevant information",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *knowledgeBaseTool) Invoke(args map[string]any) (map[string]any, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return nil, fmt.Errorf("search_knowledge_base requires a query")
	}
	// TODO: replace the placeholder results once the documentation index
	// service is reachable from this deployment.
	return map[string]any{
		"status": "success",
		"query":  query,
		"results": []string{
			"This is a placeholder for knowledge base integration.",
			"In production, this would search actual documentation.",
		},
	}, nil
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	v, ok := args[key].(string)
	if !ok {
		return ""
	}
	return v
}
