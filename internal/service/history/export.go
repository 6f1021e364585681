package history

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"autodocvision/internal/model"
)

// exportSchema describes a history export: the JSON array the browser kept
// under the history key.
const exportSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "class", "confidence"],
		"properties": {
			"id":         {"type": "integer", "minimum": 1},
			"class":      {"type": "string", "minLength": 1},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1},
			"timestamp":  {"type": "string"},
			"date":       {"type": "string"}
		}
	}
}`

var exportSchemaLoader = gojsonschema.NewStringLoader(exportSchema)

// ExportError lists the schema violations of an export.
type ExportError struct {
	Problems []string
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("invalid history export: %s", strings.Join(e.Problems, "; "))
}

// ParseExport validates data against the export schema and decodes it.
func ParseExport(data []byte) ([]model.HistoryEntry, error) {
	result, err := gojsonschema.Validate(exportSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate history export: %w", err)
	}
	if !result.Valid() {
		exportErr := &ExportError{}
		for _, e := range result.Errors() {
			exportErr.Problems = append(exportErr.Problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return nil, exportErr
	}

	var entries []model.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode history export: %w", err)
	}
	return entries, nil
}
