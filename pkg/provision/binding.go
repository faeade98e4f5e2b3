package provision

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/quickzebra/ghostctl/internal/aws"
	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/resource"
)

// BindingApplier realizes access-binding nodes: an identity role assumable by
// a cluster service account through the web identity provider, with its
// permission policy attached. Publishes the role ARN for the service account
// node.
type BindingApplier struct {
	identity aws.IdentityAPI
}

// NewBindingApplier creates an access binding applier
func NewBindingApplier(identity aws.IdentityAPI) *BindingApplier {
	return &BindingApplier{identity: identity}
}

// Apply implements graph.Applier
func (a *BindingApplier) Apply(ctx context.Context, node *graph.Node, out graph.Outputs) (map[string]string, error) {
	binding, ok := node.Resource.(*resource.AccessBinding)
	if !ok {
		return nil, fmt.Errorf("node %s: resource is not an access binding", node.ID)
	}

	logger := log.FromContext(ctx).WithValues(
		"role", binding.RoleName,
		"serviceAccount", binding.ServiceAccountNamespace+"/"+binding.ServiceAccountName,
	)

	trustPolicy, err := binding.TrustPolicy()
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", node.ID, err)
	}

	roleARN, err := a.identity.EnsureRole(ctx, binding.RoleName, trustPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure role %s: %w", binding.RoleName, err)
	}

	document, err := binding.Policy.MarshalIAM()
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", node.ID, err)
	}

	policyARN, err := a.identity.EnsurePolicy(ctx, binding.PolicyName, document)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure policy %s: %w", binding.PolicyName, err)
	}

	if err := a.identity.AttachRolePolicy(ctx, binding.RoleName, policyARN); err != nil {
		return nil, fmt.Errorf("failed to attach policy %s to role %s: %w", binding.PolicyName, binding.RoleName, err)
	}

	logger.V(1).Info("Access binding converged", "roleArn", roleARN)

	return map[string]string{
		resource.OutputRoleARN: roleARN,
	}, nil
}
