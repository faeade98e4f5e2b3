// Package readiness evaluates the ReadyWhen predicates of realized graph
// nodes against the live cluster state.
package readiness

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/resource"
)

// Checker evaluates readiness predicates for cluster-side graph nodes
type Checker struct {
	client client.Client
}

// NewChecker creates a new readiness checker
func NewChecker(c client.Client) *Checker {
	return &Checker{
		client: c,
	}
}

// Check evaluates all readiness predicates for a node.
// Returns true if all predicates are satisfied, false otherwise.
func (c *Checker) Check(ctx context.Context, node *graph.Node, predicates []graph.ReadinessPredicate) (bool, error) {
	if node == nil {
		return false, fmt.Errorf("node cannot be nil")
	}

	// No predicates means ready
	if len(predicates) == 0 {
		return true, nil
	}

	ref, err := objectRef(node)
	if err != nil {
		return false, err
	}

	// Fetch the latest version of the object
	latest := &unstructured.Unstructured{}
	latest.SetAPIVersion(ref.GetAPIVersion())
	latest.SetKind(ref.GetKind())
	latest.SetNamespace(ref.GetNamespace())
	latest.SetName(ref.GetName())

	key := client.ObjectKeyFromObject(latest)
	if err := c.client.Get(ctx, key, latest); err != nil {
		return false, fmt.Errorf("failed to get object: %w", err)
	}

	for _, pred := range predicates {
		evaluator, err := NewEvaluator(
			string(pred.Type),
			pred.ConditionType,
			pred.ConditionStatus,
		)
		if err != nil {
			return false, fmt.Errorf("failed to create evaluator: %w", err)
		}

		ready, err := evaluator.Evaluate(ctx, c.client, latest)
		if err != nil {
			return false, fmt.Errorf("predicate evaluation failed: %w", err)
		}

		if !ready {
			return false, nil
		}
	}

	return true, nil
}

// objectRef extracts the identity of the cluster object a node realizes.
// Cloud-side nodes have no cluster object; their appliers block until the
// resource is available, so declaring ReadyWhen on them is an error.
func objectRef(node *graph.Node) (*unstructured.Unstructured, error) {
	ref := &unstructured.Unstructured{}

	switch res := node.Resource.(type) {
	case *resource.Manifest:
		ref.SetAPIVersion(res.Object.GetAPIVersion())
		ref.SetKind(res.Object.GetKind())
		ref.SetNamespace(res.Object.GetNamespace())
		ref.SetName(res.Object.GetName())

	case *resource.ServiceAccount:
		ref.SetAPIVersion("v1")
		ref.SetKind("ServiceAccount")
		ref.SetNamespace(res.Namespace)
		ref.SetName(res.Name)

	case *resource.SecretMapping:
		ref.SetAPIVersion(resource.ExternalSecretAPIVersion)
		ref.SetKind("ExternalSecret")
		ref.SetNamespace(res.Namespace)
		ref.SetName(res.Name)

	case *resource.PodSecurityGroupBinding:
		ref.SetAPIVersion(resource.SecurityGroupPolicyAPIVersion)
		ref.SetKind("SecurityGroupPolicy")
		ref.SetNamespace(res.Namespace)
		ref.SetName(res.Name)

	default:
		return nil, fmt.Errorf("node %s: resource kind %s has no cluster object to check", node.ID, node.Resource.Kind())
	}

	return ref, nil
}
