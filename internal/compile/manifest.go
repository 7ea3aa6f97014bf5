package compile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// manifestFile is an optional per-sub-project manifest supplying compile
// defaults. Request fields always win over manifest values.
const manifestFile = ".vellum.yaml"

// Manifest holds per-sub-project compilation defaults.
type Manifest struct {
	MainFile     string `yaml:"main_file"`
	Engine       string `yaml:"engine"`
	OutputFormat string `yaml:"output_format"`
}

// loadManifest reads the manifest in sourceDir. A missing file yields an
// empty manifest; a malformed one is an error so typos don't silently
// fall through to defaults.
func loadManifest(sourceDir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(sourceDir, manifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{}, nil
		}
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse %s: %w", manifestFile, err)
	}
	return m, nil
}
