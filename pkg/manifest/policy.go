package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	cuepolicy "github.com/quickzebra/ghostctl/cue"
	"github.com/quickzebra/ghostctl/pkg/graph"
)

// policyFile is the embedded schema the payloads are validated against
const policyFile = "policy/manifest.cue"

// manifestDefinition is the schema definition within the policy package
const manifestDefinition = "#Manifest"

// Validator checks loaded payloads against the embedded CUE policy
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded policy
func NewValidator() (*Validator, error) {
	source, err := cuepolicy.PolicyFS.ReadFile(policyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded policy: %w", err)
	}

	ctx := cuecontext.New()
	compiled := ctx.CompileBytes(source)
	if compiled.Err() != nil {
		return nil, fmt.Errorf("failed to compile policy: %w", compiled.Err())
	}

	schema := compiled.LookupPath(cue.ParsePath(manifestDefinition))
	if schema.Err() != nil {
		return nil, fmt.Errorf("policy is missing %s: %w", manifestDefinition, schema.Err())
	}

	return &Validator{
		ctx:    ctx,
		schema: schema,
	}, nil
}

// Validate unifies each payload with the schema and returns a violation per
// payload that does not conform. The returned violations carry Error
// severity; synthesis treats them as blocking.
func (v *Validator) Validate(set *Set) []graph.Violation {
	var violations []graph.Violation

	payloads := []struct {
		path string
		obj  unstructured.Unstructured
	}{
		{DeploymentFile, set.Deployment},
		{ServiceFile, set.Service},
		{IngressFile, set.Ingress},
	}

	for _, p := range payloads {
		if err := v.validateObject(p.obj); err != nil {
			violations = append(violations, graph.Violation{
				Path:     p.path,
				Message:  err.Error(),
				Severity: graph.ViolationSeverityError,
			})
		}
	}

	return violations
}

// validateObject unifies one payload with the schema
func (v *Validator) validateObject(obj unstructured.Unstructured) error {
	value := v.ctx.Encode(obj.Object)
	if value.Err() != nil {
		return fmt.Errorf("failed to encode payload: %w", value.Err())
	}

	// Concrete validation turns a missing required field into an error
	// instead of leaving it incomplete
	unified := v.schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}

	return nil
}
