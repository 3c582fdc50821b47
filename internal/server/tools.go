package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

var regionProperty = map[string]interface{}{
	"type":        "object",
	"description": "Optional region of reference overriding the configured one",
	"properties": map[string]interface{}{
		"x":      map[string]interface{}{"type": "integer"},
		"y":      map[string]interface{}{"type": "integer"},
		"width":  map[string]interface{}{"type": "integer"},
		"height": map[string]interface{}{"type": "integer"},
	},
	"required": []string{"x", "y", "width", "height"},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "classify_image",
			Description: "Run the checkpoint pipeline on a saved frame: crop the region, segment red symbols, classify each contour and return material counts with per-symbol measurements.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty("Path to the frame image"),
					"region": regionProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "segment_image",
			Description: "Apply color segmentation to the region of a saved frame and report how many pixels pass. When output is given the mask is written there as PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty("Path to the frame image"),
					"output": pathProperty("Optional path for the mask PNG"),
					"region": regionProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "annotate_image",
			Description: "Classify a saved frame and write a copy with the region, symbol outlines, labels and counts drawn on it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty("Path to the frame image"),
					"output": pathProperty("Path for the annotated image; the format follows the extension"),
					"region": regionProperty,
				},
				"required": []string{"path", "output"},
			},
		},
		{
			Name:        "recent_records",
			Description: "List the newest publish attempts from the run journal, newest first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of records. Default 20",
						"default":     20,
					},
				},
			},
		},
	}
}
