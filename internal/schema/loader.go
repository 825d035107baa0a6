package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// overlayFile is the structure of files in the schema directory.
type overlayFile struct {
	Clusters []ClusterDef `json:"clusters" yaml:"clusters"`
}

// LoadDir reads all *.yaml, *.yml and *.json files from a directory and
// registers the clusters they declare. Clusters that already exist are
// extended. A missing or empty directory is not an error.
// Returns the number of cluster definitions loaded.
func LoadDir(dir string, registry *Registry, logger *slog.Logger) (int, error) {
	if dir == "" {
		return 0, nil
	}
	var matches []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return 0, fmt.Errorf("glob schema dir: %w", err)
		}
		matches = append(matches, m...)
	}
	if len(matches) == 0 {
		logger.Info("no schema overlay files found", "dir", dir)
		return 0, nil
	}
	sort.Strings(matches)

	total := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return total, fmt.Errorf("read %s: %w", path, err)
		}

		var f overlayFile
		if strings.EqualFold(filepath.Ext(path), ".json") {
			err = json.Unmarshal(data, &f)
		} else {
			err = yaml.Unmarshal(data, &f)
		}
		if err != nil {
			return total, fmt.Errorf("parse %s: %w", path, err)
		}

		for _, c := range f.Clusters {
			registry.Register(c)
			if err := registry.Get(c.ID).Validate(); err != nil {
				return total, fmt.Errorf("%s: %w", path, err)
			}
		}
		total += len(f.Clusters)
		logger.Info("loaded schema file", "path", filepath.Base(path), "clusters", len(f.Clusters))
	}
	return total, nil
}
