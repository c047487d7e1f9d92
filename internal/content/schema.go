package content

// schemas holds the JSON schema for each content kind. Unknown properties
// are tolerated so authors can attach metadata the engine ignores.
var schemas = map[Kind]map[string]any{
	KindText: {
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"text"},
	},
	KindImage: {
		"type": "object",
		"properties": map[string]any{
			"url":     map[string]any{"type": "string", "minLength": 1},
			"caption": map[string]any{"type": "string"},
		},
		"required": []any{"url"},
	},
	KindVideo: {
		"type": "object",
		"properties": map[string]any{
			"url":   map[string]any{"type": "string", "minLength": 1},
			"title": map[string]any{"type": "string"},
		},
		"required": []any{"url"},
	},
	KindAudio: {
		"type": "object",
		"properties": map[string]any{
			"url":        map[string]any{"type": "string", "minLength": 1},
			"transcript": map[string]any{"type": "string"},
		},
		"required": []any{"url"},
	},
	KindQuiz: {
		"type": "object",
		"properties": map[string]any{
			"id":   map[string]any{"type": "string"},
			"type": map[string]any{"type": "string"},
			"question": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"options": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 2,
			},
			"correct_answer": map[string]any{"type": "integer", "minimum": 0},
			"difficulty": map[string]any{
				"type":    "number",
				"minimum": 0,
				"maximum": 1,
			},
			"hint":          map[string]any{"type": "string"},
			"grammar_point": map[string]any{"type": "string"},
			"context":       map[string]any{"type": "string"},
			"topic":         map[string]any{"type": "string"},
		},
		"required": []any{"question", "options"},
	},
}
