// Package manifest loads the deployment payload files and validates them
// against the embedded CUE policy before they enter the graph.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// Fixed payload file names resolved relative to the manifest directory
const (
	DeploymentFile = "ghost-deployment.yaml"
	ServiceFile    = "ghost-service.yaml"
	IngressFile    = "ghost-ingress.yaml"
)

// Set holds the three loaded payloads
type Set struct {
	Deployment unstructured.Unstructured
	Service    unstructured.Unstructured
	Ingress    unstructured.Unstructured
}

// Loader reads payload files from a directory
type Loader struct {
	dir string
}

// NewLoader creates a loader rooted at the given directory
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads the three fixed payload files. A missing or malformed file is
// an error; the run aborts before any graph is built.
func (l *Loader) Load() (*Set, error) {
	deployment, err := l.loadFile(DeploymentFile)
	if err != nil {
		return nil, err
	}
	service, err := l.loadFile(ServiceFile)
	if err != nil {
		return nil, err
	}
	ingress, err := l.loadFile(IngressFile)
	if err != nil {
		return nil, err
	}

	return &Set{
		Deployment: *deployment,
		Service:    *service,
		Ingress:    *ingress,
	}, nil
}

// loadFile reads one YAML file into an unstructured object
func (l *Loader) loadFile(name string) (*unstructured.Unstructured, error) {
	path := filepath.Join(l.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var body map[string]interface{}
	if err := yaml.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	return &unstructured.Unstructured{Object: body}, nil
}
