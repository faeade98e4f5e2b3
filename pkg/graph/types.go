package graph

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ResourceKind identifies the kind of resource a node describes. Each kind
// is realized by a dedicated Applier registered with the executor.
type ResourceKind string

// Resource is a declarative description of one resource to be created or
// updated. Implementations live in pkg/resource.
type Resource interface {
	// Kind returns the resource kind used for applier dispatch
	Kind() ResourceKind

	// Validate checks the internal consistency of the description
	Validate() error
}

// RefEmitter is implemented by resources that reference outputs of other
// nodes. Validation uses it to check that every referenced node exists and
// is listed in the node's DependsOn edges.
type RefEmitter interface {
	Refs() []Ref
}

// Graph represents a dependency graph of resources to be realized
type Graph struct {
	// Metadata contains information about the graph
	Metadata GraphMetadata `json:"metadata"`

	// Nodes contains all the resources to be realized
	Nodes []Node `json:"nodes"`

	// Violations contains any policy violations found while assembling
	// the graph
	Violations []Violation `json:"violations,omitempty"`
}

// GraphMetadata contains metadata about the graph
type GraphMetadata struct {
	// Name is a human-readable name for the graph
	Name string `json:"name"`

	// Version is the version of the graph format
	Version string `json:"version"`

	// Account is the cloud account the graph targets
	Account string `json:"account,omitempty"`

	// Region is the cloud region the graph targets
	Region string `json:"region,omitempty"`

	// RenderHash is a hash of the synthesized graph for change detection
	RenderHash string `json:"renderHash,omitempty"`
}

// Node represents a single resource in the graph
type Node struct {
	// ID is a unique identifier for this node within the graph
	ID string `json:"id"`

	// Resource is the declarative description to realize
	Resource Resource `json:"resource"`

	// ApplyPolicy defines how this resource should be applied
	ApplyPolicy ApplyPolicy `json:"applyPolicy"`

	// DependsOn lists the IDs of nodes that must be realized before this one
	DependsOn []string `json:"dependsOn,omitempty"`

	// ReadyWhen defines the conditions for this resource to be considered ready
	ReadyWhen []ReadinessPredicate `json:"readyWhen,omitempty"`
}

// MarshalJSON includes the resource kind as a discriminator so synthesized
// graphs remain interpretable without the Go types.
func (n Node) MarshalJSON() ([]byte, error) {
	type alias Node
	var kind ResourceKind
	if n.Resource != nil {
		kind = n.Resource.Kind()
	}
	return json.Marshal(struct {
		Kind ResourceKind `json:"kind"`
		alias
	}{Kind: kind, alias: alias(n)})
}

// ApplyPolicy defines how a resource should be applied
type ApplyPolicy struct {
	// Mode determines the apply behavior
	// - "Apply": converge to the declared state (default)
	// - "Create": only create if it doesn't exist
	// - "Adopt": adopt an existing resource
	Mode ApplyMode `json:"mode,omitempty"`

	// ConflictPolicy determines how to handle field manager conflicts on
	// Kubernetes resources
	ConflictPolicy ConflictPolicy `json:"conflictPolicy,omitempty"`

	// FieldManager is the name to use for field management
	// Defaults to "ghostctl"
	FieldManager string `json:"fieldManager,omitempty"`
}

// ApplyMode defines the apply behavior
type ApplyMode string

const (
	// ApplyModeApply converges the live resource to the declared state
	ApplyModeApply ApplyMode = "Apply"

	// ApplyModeCreate only creates if the resource doesn't exist
	ApplyModeCreate ApplyMode = "Create"

	// ApplyModeAdopt adopts an existing resource
	ApplyModeAdopt ApplyMode = "Adopt"
)

// ConflictPolicy defines how to handle field manager conflicts
type ConflictPolicy string

const (
	// ConflictPolicyError fails on conflicts
	ConflictPolicyError ConflictPolicy = "Error"

	// ConflictPolicyForce forces ownership of conflicting fields
	ConflictPolicyForce ConflictPolicy = "Force"
)

// DefaultFieldManager is the field manager recorded on applied objects
const DefaultFieldManager = "ghostctl"

// ReadinessPredicate defines a condition that must be met for a resource to be ready
type ReadinessPredicate struct {
	// Type is the type of predicate
	Type PredicateType `json:"type"`

	// ConditionType is the condition type to check (for ConditionMatch predicates)
	ConditionType string `json:"conditionType,omitempty"`

	// ConditionStatus is the expected status (for ConditionMatch predicates)
	ConditionStatus string `json:"conditionStatus,omitempty"`

	// Timeout is the maximum time to wait for this predicate (in seconds)
	Timeout int `json:"timeout,omitempty"`
}

// PredicateType defines the type of readiness predicate
type PredicateType string

const (
	// PredicateTypeConditionMatch checks for a specific condition
	PredicateTypeConditionMatch PredicateType = "ConditionMatch"

	// PredicateTypeDeploymentAvailable checks if a Deployment is available
	PredicateTypeDeploymentAvailable PredicateType = "DeploymentAvailable"

	// PredicateTypeExists checks if the resource exists
	PredicateTypeExists PredicateType = "Exists"
)

// Violation represents a policy violation found during synthesis
type Violation struct {
	// Path is the path to the violating field or document
	Path string `json:"path"`

	// Message is a human-readable description of the violation
	Message string `json:"message"`

	// Severity indicates how serious the violation is
	Severity ViolationSeverity `json:"severity"`
}

// ViolationSeverity indicates the severity of a policy violation
type ViolationSeverity string

const (
	// ViolationSeverityError indicates a blocking violation
	ViolationSeverityError ViolationSeverity = "Error"

	// ViolationSeverityWarning indicates a non-blocking violation
	ViolationSeverityWarning ViolationSeverity = "Warning"
)

// ComputeHash computes a hash of the graph for drift detection.
// Only the nodes and violations are hashed, not the metadata, so the same
// desired state always produces the same hash.
func (g *Graph) ComputeHash() string {
	type hashableGraph struct {
		Nodes      []Node      `json:"nodes"`
		Violations []Violation `json:"violations"`
	}

	h := hashableGraph{
		Nodes:      g.Nodes,
		Violations: g.Violations,
	}

	data, err := json.Marshal(h)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("%x", xxhash.Sum64(data))
}

// SetHash computes and sets the RenderHash field
func (g *Graph) SetHash() {
	g.Metadata.RenderHash = g.ComputeHash()
}

// HasChanged returns true if the graph has changed since the last hash
func (g *Graph) HasChanged(previousHash string) bool {
	if previousHash == "" {
		return true
	}
	return g.ComputeHash() != previousHash
}

// Node returns the node with the given ID, if present
func (g *Graph) Node(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// NodesOfKind returns all nodes whose resource has the given kind
func (g *Graph) NodesOfKind(kind ResourceKind) []*Node {
	var nodes []*Node
	for i := range g.Nodes {
		if g.Nodes[i].Resource != nil && g.Nodes[i].Resource.Kind() == kind {
			nodes = append(nodes, &g.Nodes[i])
		}
	}
	return nodes
}
