package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/runbooklabs/inlinegen/pkg/document"
	"github.com/runbooklabs/inlinegen/pkg/tools"
)

// documentTool lets the generation service read the current document state
// mid-generation.
func documentTool(doc document.Document) tools.Tool {
	return tools.Func{
		ToolName: "read_document",
		Desc:     "Read the current document blocks as JSON",
		Fn: func(_ context.Context, _ map[string]any) (string, error) {
			data, err := json.Marshal(doc.Blocks())
			if err != nil {
				return "", fmt.Errorf("marshal document: %w", err)
			}
			return string(data), nil
		},
	}
}

// blockTypesTool reports which block types this host can run.
func blockTypesTool(executable []string) tools.Tool {
	return tools.Func{
		ToolName: "list_block_types",
		Desc:     "List the executable block types of this host",
		Fn: func(_ context.Context, _ map[string]any) (string, error) {
			return strings.Join(executable, ", "), nil
		},
	}
}
