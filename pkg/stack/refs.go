package stack

import (
	"context"
	"fmt"

	"github.com/quickzebra/ghostctl/internal/aws"
)

// Names of the values exported by the cluster provisioning stack
const (
	// ExportClusterName is the cluster name export
	ExportClusterName = "EKSClusterName"

	// ExportOIDCProviderARN is the cluster identity provider export
	ExportOIDCProviderARN = "EKSClusterOIDCProviderARN"

	// ExportKubectlRoleARN is the cluster admin role export
	ExportKubectlRoleARN = "EKSClusterKubectlRoleARN"

	// ExportKubectlSecurityGroupID is the kubectl security group export
	ExportKubectlSecurityGroupID = "EKSSGID"
)

// NetworkRef describes the pre-existing virtual network the stack deploys
// into
type NetworkRef struct {
	// VPCID is the looked-up VPC id
	VPCID string

	// PrivateSubnetIDs are the private subnets the database is placed in
	PrivateSubnetIDs []string
}

// ClusterRef describes the pre-existing cluster the stack deploys onto
type ClusterRef struct {
	// Name is the cluster name
	Name string

	// OIDCProviderARN is the cluster's workload identity provider
	OIDCProviderARN string

	// KubectlRoleARN is the role used for cluster operations
	KubectlRoleARN string

	// KubectlSecurityGroupID is the security group of the kubectl handler
	KubectlSecurityGroupID string

	// ClusterSecurityGroupID is the cluster's own security group
	ClusterSecurityGroupID string

	// Endpoint is the API server endpoint
	Endpoint string
}

// Resolver looks up the external references the builder needs. Any lookup
// failure is fatal to the run.
type Resolver struct {
	network  aws.NetworkAPI
	exports  aws.ExportsAPI
	clusters aws.ClusterAPI
}

// NewResolver creates a reference resolver
func NewResolver(network aws.NetworkAPI, exports aws.ExportsAPI, clusters aws.ClusterAPI) *Resolver {
	return &Resolver{
		network:  network,
		exports:  exports,
		clusters: clusters,
	}
}

// ResolveNetwork looks up the VPC by name
func (r *Resolver) ResolveNetwork(ctx context.Context, vpcName string) (*NetworkRef, error) {
	vpc, err := r.network.LookupVPC(ctx, vpcName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up VPC %q: %w", vpcName, err)
	}
	if len(vpc.PrivateSubnetIDs) == 0 {
		return nil, fmt.Errorf("VPC %q has no private subnets", vpcName)
	}

	return &NetworkRef{
		VPCID:            vpc.ID,
		PrivateSubnetIDs: vpc.PrivateSubnetIDs,
	}, nil
}

// ResolveCluster assembles the cluster reference from the provisioning
// stack's exports and the cluster description
func (r *Resolver) ResolveCluster(ctx context.Context) (*ClusterRef, error) {
	name, err := r.exports.LookupExport(ctx, ExportClusterName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up export %s: %w", ExportClusterName, err)
	}
	oidcARN, err := r.exports.LookupExport(ctx, ExportOIDCProviderARN)
	if err != nil {
		return nil, fmt.Errorf("failed to look up export %s: %w", ExportOIDCProviderARN, err)
	}
	kubectlRoleARN, err := r.exports.LookupExport(ctx, ExportKubectlRoleARN)
	if err != nil {
		return nil, fmt.Errorf("failed to look up export %s: %w", ExportKubectlRoleARN, err)
	}
	kubectlSGID, err := r.exports.LookupExport(ctx, ExportKubectlSecurityGroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up export %s: %w", ExportKubectlSecurityGroupID, err)
	}

	cluster, err := r.clusters.DescribeCluster(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to describe cluster %q: %w", name, err)
	}

	return &ClusterRef{
		Name:                   name,
		OIDCProviderARN:        oidcARN,
		KubectlRoleARN:         kubectlRoleARN,
		KubectlSecurityGroupID: kubectlSGID,
		ClusterSecurityGroupID: cluster.ClusterSecurityGroupID,
		Endpoint:               cluster.Endpoint,
	}, nil
}
