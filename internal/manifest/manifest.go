package manifest

import (
	"fmt"
	"os"

	v1 "github.com/djcass44/depstrip/pkg/api/v1"
	"github.com/drone/envsubst"
	"k8s.io/apimachinery/pkg/util/yaml"
)

// Read decodes a YAML or JSON removal manifest and expands
// environment variables in every package path and dependency name.
func Read(path string) (*v1.Removal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var removal v1.Removal
	if err := yaml.NewYAMLOrJSONDecoder(f, 4).Decode(&removal); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	for i := range removal.Spec.Packages {
		pkg := &removal.Spec.Packages[i]
		if pkg.Path, err = ExpandEnv(pkg.Path); err != nil {
			return nil, fmt.Errorf("expanding path of package %d: %w", i, err)
		}
		for j := range pkg.Dependencies {
			if pkg.Dependencies[j], err = ExpandEnv(pkg.Dependencies[j]); err != nil {
				return nil, fmt.Errorf("expanding dependency of package %d: %w", i, err)
			}
		}
	}
	return &removal, nil
}

func ExpandEnv(s string) (string, error) {
	return envsubst.EvalEnv(s)
}
