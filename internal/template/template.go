package template

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed index-template.json
var defaultTemplate []byte

// Manager installs an index template on the backend.
type Manager interface {
	Ensure(ctx context.Context, name string, body map[string]any) error
}

// Name is the template name used for an index prefix.
func Name(indexPrefix string) string {
	return "template_" + indexPrefix
}

// Load returns the mapping template at path, or the built-in one when path
// is empty. JSON and YAML files are accepted. The index patterns are pointed
// at <indexPrefix>-*.
func Load(path, indexPrefix string) (map[string]any, error) {
	data := defaultTemplate
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read mapping template: %w", err)
		}
	}

	var body map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("cannot parse mapping template %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("cannot parse mapping template %s: %w", path, err)
		}
	}

	if body == nil {
		return nil, fmt.Errorf("mapping template %s is empty", path)
	}
	if indexPrefix != "" {
		body["index_patterns"] = []string{indexPrefix + "-*"}
	}
	return body, nil
}
