// Package aws wraps the cloud provider APIs behind narrow interfaces so the
// graph appliers can be tested against mocks. Lookup failures are fatal to
// the run; Ensure operations are idempotent and return the existing resource
// when one is already present.
package aws

import (
	"context"
)

// VPCInfo describes an externally looked-up virtual network
type VPCInfo struct {
	// ID is the VPC id
	ID string

	// PrivateSubnetIDs are the subnets without public IP auto-assignment
	PrivateSubnetIDs []string
}

// ClusterInfo describes an externally looked-up orchestration cluster
type ClusterInfo struct {
	// Name is the cluster name
	Name string

	// ClusterSecurityGroupID is the cluster's default security group
	ClusterSecurityGroupID string

	// Endpoint is the API server endpoint
	Endpoint string

	// CertificateAuthorityData is the base64-encoded cluster CA
	CertificateAuthorityData string
}

// DBInstanceInfo describes a realized database instance
type DBInstanceInfo struct {
	// Identifier is the instance identifier
	Identifier string

	// Endpoint is the connection host, empty until the instance is available
	Endpoint string

	// Port is the listener port
	Port int32
}

// SecretInfo describes a stored secret and its payload
type SecretInfo struct {
	// Name is the secret name
	Name string

	// ARN is the secret ARN
	ARN string

	// Payload is the decoded key/value payload
	Payload map[string]string
}

// EnsureDBInstanceInput describes the database instance to converge to
type EnsureDBInstanceInput struct {
	Identifier         string
	Engine             string
	EngineVersion      string
	InstanceClass      string
	AllocatedStorage   int32
	MultiAZ            bool
	DeletionProtection bool
	DatabaseName       string
	MasterUsername     string
	MasterPassword     string
	Port               int32
	SubnetIDs          []string
	SecurityGroupIDs   []string
}

// NetworkAPI looks up pre-existing virtual networks
type NetworkAPI interface {
	// LookupVPC resolves a VPC by its Name tag. A missing VPC is an error.
	LookupVPC(ctx context.Context, name string) (*VPCInfo, error)
}

// ExportsAPI looks up values exported by pre-existing provisioning stacks
type ExportsAPI interface {
	// LookupExport resolves a named stack export. A missing export is an error.
	LookupExport(ctx context.Context, name string) (string, error)
}

// ClusterAPI looks up pre-existing orchestration clusters
type ClusterAPI interface {
	// DescribeCluster resolves a cluster by name. A missing cluster is an error.
	DescribeCluster(ctx context.Context, name string) (*ClusterInfo, error)
}

// SecurityGroupAPI manages security groups and their rules
type SecurityGroupAPI interface {
	// EnsureSecurityGroup creates the group if absent and returns its id
	EnsureSecurityGroup(ctx context.Context, name, description, vpcID string) (string, error)

	// AuthorizeIngressFromGroup opens a port on groupID for members of
	// sourceGroupID. An already-existing identical rule is not an error.
	AuthorizeIngressFromGroup(ctx context.Context, groupID, sourceGroupID, protocol string, port int32, description string) error
}

// DatabaseAPI manages database instances
type DatabaseAPI interface {
	// EnsureDBInstance creates the instance if absent and blocks until it
	// is available, returning its connection endpoint
	EnsureDBInstance(ctx context.Context, in EnsureDBInstanceInput) (*DBInstanceInfo, error)
}

// SecretsAPI manages stored secrets
type SecretsAPI interface {
	// GetSecret returns the secret and its payload, or nil if absent
	GetSecret(ctx context.Context, name string) (*SecretInfo, error)

	// CreateSecret stores a new secret with the given payload
	CreateSecret(ctx context.Context, name string, payload map[string]string) (*SecretInfo, error)

	// UpdateSecret replaces the payload of an existing secret
	UpdateSecret(ctx context.Context, name string, payload map[string]string) error

	// RandomPassword generates a password suitable for database credentials
	RandomPassword(ctx context.Context, length int64) (string, error)
}

// IdentityAPI manages identity roles and policies
type IdentityAPI interface {
	// EnsureRole creates the role with the given trust policy if absent
	// and returns its ARN
	EnsureRole(ctx context.Context, name, trustPolicy string) (string, error)

	// EnsurePolicy creates the policy if absent and returns its ARN
	EnsurePolicy(ctx context.Context, name, document string) (string, error)

	// AttachRolePolicy attaches the policy to the role; attaching an
	// already-attached policy is not an error
	AttachRolePolicy(ctx context.Context, roleName, policyARN string) error
}
