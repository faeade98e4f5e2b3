package graph

import (
	"fmt"
)

// Validate checks the integrity of the Graph
func (g *Graph) Validate() error {
	if g.Metadata.Name == "" {
		return fmt.Errorf("graph metadata.name is required")
	}

	if g.Metadata.Version == "" {
		return fmt.Errorf("graph metadata.version is required")
	}

	// Check for duplicate node IDs
	nodeIDs := make(map[string]bool)
	for _, node := range g.Nodes {
		if node.ID == "" {
			return fmt.Errorf("node ID is required")
		}
		if nodeIDs[node.ID] {
			return fmt.Errorf("duplicate node ID: %s", node.ID)
		}
		nodeIDs[node.ID] = true
	}

	// Validate each node
	for i := range g.Nodes {
		if err := g.Nodes[i].Validate(nodeIDs); err != nil {
			return fmt.Errorf("node %s: %w", g.Nodes[i].ID, err)
		}
	}

	// Blocking violations fail validation
	for _, v := range g.Violations {
		if v.Severity == ViolationSeverityError {
			return fmt.Errorf("policy violation at %s: %s", v.Path, v.Message)
		}
	}

	return nil
}

// Validate checks the integrity of a Node
func (n *Node) Validate(allNodeIDs map[string]bool) error {
	if n.ID == "" {
		return fmt.Errorf("node ID is required")
	}

	if n.Resource == nil {
		return fmt.Errorf("node resource is required")
	}

	if n.Resource.Kind() == "" {
		return fmt.Errorf("resource kind is required")
	}

	if err := n.Resource.Validate(); err != nil {
		return fmt.Errorf("resource: %w", err)
	}

	// Validate apply policy
	if err := n.ApplyPolicy.Validate(); err != nil {
		return fmt.Errorf("applyPolicy: %w", err)
	}

	// Validate dependencies exist
	deps := make(map[string]bool, len(n.DependsOn))
	for _, depID := range n.DependsOn {
		if depID == n.ID {
			return fmt.Errorf("node cannot depend on itself")
		}
		if !allNodeIDs[depID] {
			return fmt.Errorf("dependency %s does not exist", depID)
		}
		deps[depID] = true
	}

	// Every output ref must be backed by an explicit dependency edge so the
	// producing node is realized first
	if emitter, ok := n.Resource.(RefEmitter); ok {
		for _, ref := range emitter.Refs() {
			if !ref.IsOutput() {
				continue
			}
			if !allNodeIDs[ref.Node] {
				return fmt.Errorf("ref %s points at non-existent node", ref)
			}
			if !deps[ref.Node] {
				return fmt.Errorf("ref %s requires a dependsOn edge to node %s", ref, ref.Node)
			}
		}
	}

	// Validate readiness predicates
	for i, pred := range n.ReadyWhen {
		if err := pred.Validate(); err != nil {
			return fmt.Errorf("readyWhen[%d]: %w", i, err)
		}
	}

	return nil
}

// Validate checks the integrity of an ApplyPolicy
func (ap *ApplyPolicy) Validate() error {
	// Set defaults
	if ap.Mode == "" {
		ap.Mode = ApplyModeApply
	}

	if ap.ConflictPolicy == "" {
		ap.ConflictPolicy = ConflictPolicyError
	}

	if ap.FieldManager == "" {
		ap.FieldManager = DefaultFieldManager
	}

	// Validate mode
	switch ap.Mode {
	case ApplyModeApply, ApplyModeCreate, ApplyModeAdopt:
		// Valid
	default:
		return fmt.Errorf("invalid apply mode: %s", ap.Mode)
	}

	// Validate conflict policy
	switch ap.ConflictPolicy {
	case ConflictPolicyError, ConflictPolicyForce:
		// Valid
	default:
		return fmt.Errorf("invalid conflict policy: %s", ap.ConflictPolicy)
	}

	return nil
}

// Validate checks the integrity of a ReadinessPredicate
func (rp *ReadinessPredicate) Validate() error {
	switch rp.Type {
	case PredicateTypeConditionMatch:
		if rp.ConditionType == "" {
			return fmt.Errorf("conditionType is required for ConditionMatch predicate")
		}
		if rp.ConditionStatus == "" {
			return fmt.Errorf("conditionStatus is required for ConditionMatch predicate")
		}
	case PredicateTypeDeploymentAvailable, PredicateTypeExists:
		// No additional validation needed
	default:
		return fmt.Errorf("invalid predicate type: %s", rp.Type)
	}

	if rp.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	return nil
}
