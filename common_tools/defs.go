// Package common_tools declares the invocable tools the driving model may
// call mid-turn, their argument schemas, and the dispatcher that validates
// and executes a call.
package common_tools

import (
	"context"
	"fmt"
	"log"

	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/sessions"
	"github.com/Desarso/chatstream/stores"
)

// ModelResolver resolves a model identifier to a callable handle. The model
// gateway implements it.
type ModelResolver interface {
	Resolve(modelID string) (models.Model, error)
}

// ToolRunContext carries everything a tool handler needs, threaded explicitly
// through every call instead of living in shared state.
type ToolRunContext struct {
	UserID  string
	ChatID  string
	ModelID string
	Models  ModelResolver
	Store   stores.ChatStore
	Stream  *sessions.DataStream
	Logger  *log.Logger
}

// HandlerFunc is the signature every tool handler implements. The returned
// string must be valid JSON; a structured error payload (not a Go error) is
// the way to report recoverable conditions like a missing document.
type HandlerFunc func(ctx context.Context, tc *ToolRunContext, args map[string]interface{}) (string, error)

// DefaultTools returns the fixed tool set.
func DefaultTools() []models.FunctionDeclaration {
	return []models.FunctionDeclaration{
		GetWeatherTool(),
		CreateDocumentTool(),
		UpdateDocumentTool(),
		RequestSuggestionsTool(),
	}
}

// ValidateArgs checks the call arguments against the declared schema before
// dispatch: required properties must be present, values must match their
// declared type, enum values must be members.
func ValidateArgs(decl models.FunctionDeclaration, args map[string]interface{}) error {
	for _, name := range decl.Parameters.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("tool %s: missing required argument %q", decl.Name, name)
		}
	}

	for name, value := range args {
		rawProp, ok := decl.Parameters.Properties[name]
		if !ok {
			return fmt.Errorf("tool %s: unknown argument %q", decl.Name, name)
		}
		prop, ok := rawProp.(map[string]interface{})
		if !ok {
			continue
		}

		switch prop["type"] {
		case "string":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("tool %s: argument %q must be a string, got %T", decl.Name, name, value)
			}
			if enum, ok := prop["enum"].([]string); ok && !contains(enum, s) {
				return fmt.Errorf("tool %s: argument %q must be one of %v", decl.Name, name, enum)
			}
		case "number":
			if _, ok := value.(float64); !ok {
				return fmt.Errorf("tool %s: argument %q must be a number, got %T", decl.Name, name, value)
			}
		}
	}
	return nil
}

// Executor wraps the tool set and run context into the per-turn executor the
// session loop calls. Unknown tools and schema violations fail before any
// handler runs.
func Executor(tc *ToolRunContext, tools []models.FunctionDeclaration) sessions.ToolExecutorFunc {
	return func(ctx context.Context, name string, args map[string]interface{}) (string, error) {
		for _, decl := range tools {
			if decl.Name != name {
				continue
			}
			if err := ValidateArgs(decl, args); err != nil {
				return "", err
			}
			handler, ok := decl.Callable.(HandlerFunc)
			if !ok {
				return "", fmt.Errorf("internal error: tool %s is not callable", name)
			}
			return handler(ctx, tc, args)
		}
		return "", fmt.Errorf("unknown or unavailable tool: %s", name)
	}
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func stringArg(args map[string]interface{}, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

func numberArg(args map[string]interface{}, name string) float64 {
	if v, ok := args[name].(float64); ok {
		return v
	}
	return 0
}
