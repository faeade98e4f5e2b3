package resource

import (
	"fmt"

	"github.com/quickzebra/ghostctl/pkg/graph"
)

// SecurityGroup describes a VPC security group. Appliers key idempotency on
// the group name within the VPC.
type SecurityGroup struct {
	// Name is the group name, unique within the VPC
	Name string `json:"name"`

	// Description is the group description
	Description string `json:"description,omitempty"`

	// VPCID is the id of the VPC the group lives in
	VPCID string `json:"vpcId"`

	// AllowAllOutbound keeps the default allow-all egress rule
	AllowAllOutbound bool `json:"allowAllOutbound,omitempty"`
}

// Kind returns the resource kind
func (sg *SecurityGroup) Kind() graph.ResourceKind { return KindSecurityGroup }

// Validate checks the internal consistency of the description
func (sg *SecurityGroup) Validate() error {
	if sg.Name == "" {
		return fmt.Errorf("security group name is required")
	}
	if sg.VPCID == "" {
		return fmt.Errorf("security group %s: vpcId is required", sg.Name)
	}
	return nil
}

// SecurityGroupRule describes an ingress rule allowing one security group to
// reach another on a single port
type SecurityGroupRule struct {
	// GroupID is the destination security group the rule is attached to
	GroupID graph.Ref `json:"groupId"`

	// SourceGroupID is the security group allowed to connect
	SourceGroupID graph.Ref `json:"sourceGroupId"`

	// Protocol is the IP protocol, defaulting to tcp
	Protocol string `json:"protocol,omitempty"`

	// Port is the destination port to open
	Port int32 `json:"port"`

	// Description is attached to the rule for operators
	Description string `json:"description,omitempty"`
}

// Kind returns the resource kind
func (r *SecurityGroupRule) Kind() graph.ResourceKind { return KindSecurityGroupRule }

// Validate checks the internal consistency of the description
func (r *SecurityGroupRule) Validate() error {
	if err := r.GroupID.Validate(); err != nil {
		return fmt.Errorf("groupId: %w", err)
	}
	if err := r.SourceGroupID.Validate(); err != nil {
		return fmt.Errorf("sourceGroupId: %w", err)
	}
	if r.Port < 1 || r.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", r.Port)
	}
	return nil
}

// Refs returns the cross-node references the rule carries
func (r *SecurityGroupRule) Refs() []graph.Ref {
	return []graph.Ref{r.GroupID, r.SourceGroupID}
}
