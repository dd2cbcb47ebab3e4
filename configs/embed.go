package configs

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/codex-k8s/pocketbase-mcp-server/internal/dsl"
)

// CatalogFile is the embedded default tool catalog.
const CatalogFile = "tools.yaml"

//go:embed *.yaml
var embeddedConfigs embed.FS

// Names returns the list of embedded YAML filenames.
func Names() []string {
	entries, err := fs.Glob(embeddedConfigs, "*.yaml")
	if err != nil {
		return nil
	}
	sort.Strings(entries)
	return entries
}

// Load returns the embedded YAML file by name.
func Load(name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("embedded config name is empty")
	}
	data, err := fs.ReadFile(embeddedConfigs, name)
	if err != nil {
		return nil, fmt.Errorf("read embedded config %q: %w", name, err)
	}
	return data, nil
}

// Catalog parses the tool catalog. An empty path selects the embedded one.
func Catalog(path string) (*dsl.Catalog, error) {
	var (
		raw []byte
		err error
	)
	if path == "" {
		raw, err = Load(CatalogFile)
	} else {
		raw, err = os.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("read catalog: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}
	return dsl.Load(raw)
}
