package provision

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/quickzebra/ghostctl/internal/aws"
	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/resource"
)

// defaultProtocol is used when a rule does not name one
const defaultProtocol = "tcp"

// SecurityGroupApplier realizes security group nodes and publishes the group
// id for dependent rules and instances
type SecurityGroupApplier struct {
	groups aws.SecurityGroupAPI
}

// NewSecurityGroupApplier creates a security group applier
func NewSecurityGroupApplier(groups aws.SecurityGroupAPI) *SecurityGroupApplier {
	return &SecurityGroupApplier{groups: groups}
}

// Apply implements graph.Applier
func (a *SecurityGroupApplier) Apply(ctx context.Context, node *graph.Node, out graph.Outputs) (map[string]string, error) {
	sg, ok := node.Resource.(*resource.SecurityGroup)
	if !ok {
		return nil, fmt.Errorf("node %s: resource is not a security group", node.ID)
	}

	logger := log.FromContext(ctx).WithValues("group", sg.Name, "vpc", sg.VPCID)

	id, err := a.groups.EnsureSecurityGroup(ctx, sg.Name, sg.Description, sg.VPCID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure security group %s: %w", sg.Name, err)
	}

	logger.V(1).Info("Security group converged", "id", id)

	return map[string]string{
		resource.OutputSecurityGroupID: id,
	}, nil
}

// RuleApplier realizes ingress rule nodes between two security groups
type RuleApplier struct {
	groups aws.SecurityGroupAPI
}

// NewRuleApplier creates a security group rule applier
func NewRuleApplier(groups aws.SecurityGroupAPI) *RuleApplier {
	return &RuleApplier{groups: groups}
}

// Apply implements graph.Applier
func (a *RuleApplier) Apply(ctx context.Context, node *graph.Node, out graph.Outputs) (map[string]string, error) {
	rule, ok := node.Resource.(*resource.SecurityGroupRule)
	if !ok {
		return nil, fmt.Errorf("node %s: resource is not a security group rule", node.ID)
	}

	groupID, err := rule.GroupID.Resolve(out)
	if err != nil {
		return nil, fmt.Errorf("node %s: resolving group ref: %w", node.ID, err)
	}
	sourceGroupID, err := rule.SourceGroupID.Resolve(out)
	if err != nil {
		return nil, fmt.Errorf("node %s: resolving source group ref: %w", node.ID, err)
	}

	protocol := rule.Protocol
	if protocol == "" {
		protocol = defaultProtocol
	}

	logger := log.FromContext(ctx).WithValues(
		"group", groupID,
		"source", sourceGroupID,
		"port", rule.Port,
	)

	if err := a.groups.AuthorizeIngressFromGroup(ctx, groupID, sourceGroupID, protocol, rule.Port, rule.Description); err != nil {
		return nil, fmt.Errorf("failed to authorize ingress on %s: %w", groupID, err)
	}

	logger.V(1).Info("Ingress rule converged")
	return nil, nil
}
