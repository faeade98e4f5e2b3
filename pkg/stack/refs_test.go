package stack

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickzebra/ghostctl/internal/aws"
)

func TestResolver_ResolveNetwork(t *testing.T) {
	cli := aws.NewMockClient()
	cli.LookupVPCFunc = func(ctx context.Context, name string) (*aws.VPCInfo, error) {
		assert.Equal(t, "EKSClusterStack/VPC", name)
		return &aws.VPCInfo{
			ID:               "vpc-1",
			PrivateSubnetIDs: []string{"subnet-a", "subnet-b"},
		}, nil
	}

	resolver := NewResolver(cli, cli, cli)
	network, err := resolver.ResolveNetwork(context.Background(), "EKSClusterStack/VPC")
	require.NoError(t, err)

	assert.Equal(t, "vpc-1", network.VPCID)
	assert.Equal(t, []string{"subnet-a", "subnet-b"}, network.PrivateSubnetIDs)
}

func TestResolver_NetworkWithoutPrivateSubnetsFails(t *testing.T) {
	cli := aws.NewMockClient()
	cli.LookupVPCFunc = func(ctx context.Context, name string) (*aws.VPCInfo, error) {
		return &aws.VPCInfo{ID: "vpc-1"}, nil
	}

	resolver := NewResolver(cli, cli, cli)
	_, err := resolver.ResolveNetwork(context.Background(), "EKSClusterStack/VPC")
	assert.ErrorContains(t, err, "no private subnets")
}

func TestResolver_NetworkLookupFailureFatal(t *testing.T) {
	cli := aws.NewMockClient()
	cli.LookupVPCFunc = func(ctx context.Context, name string) (*aws.VPCInfo, error) {
		return nil, errors.New("vpc not found")
	}

	resolver := NewResolver(cli, cli, cli)
	_, err := resolver.ResolveNetwork(context.Background(), "missing")
	assert.ErrorContains(t, err, "vpc not found")
}

func TestResolver_ResolveCluster(t *testing.T) {
	exports := map[string]string{
		ExportClusterName:            "EKSCluster",
		ExportOIDCProviderARN:        "arn:aws:iam::123456789012:oidc-provider/oidc.example.com/id/ABCDEF",
		ExportKubectlRoleARN:         "arn:aws:iam::123456789012:role/kubectl",
		ExportKubectlSecurityGroupID: "sg-kubectl",
	}

	cli := aws.NewMockClient()
	cli.LookupExportFunc = func(ctx context.Context, name string) (string, error) {
		value, found := exports[name]
		if !found {
			return "", errors.New("export not found")
		}
		return value, nil
	}
	cli.DescribeClusterFunc = func(ctx context.Context, name string) (*aws.ClusterInfo, error) {
		assert.Equal(t, "EKSCluster", name)
		return &aws.ClusterInfo{
			Name:                   name,
			ClusterSecurityGroupID: "sg-cluster",
			Endpoint:               "https://cluster.example.com",
		}, nil
	}

	resolver := NewResolver(cli, cli, cli)
	cluster, err := resolver.ResolveCluster(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "EKSCluster", cluster.Name)
	assert.Equal(t, exports[ExportOIDCProviderARN], cluster.OIDCProviderARN)
	assert.Equal(t, exports[ExportKubectlRoleARN], cluster.KubectlRoleARN)
	assert.Equal(t, "sg-kubectl", cluster.KubectlSecurityGroupID)
	assert.Equal(t, "sg-cluster", cluster.ClusterSecurityGroupID)
	assert.Equal(t, "https://cluster.example.com", cluster.Endpoint)

	assert.Equal(t, 4, cli.CallCount("LookupExport"))
	assert.Equal(t, 1, cli.CallCount("DescribeCluster"))
}

func TestResolver_MissingExportFatal(t *testing.T) {
	cli := aws.NewMockClient()
	cli.LookupExportFunc = func(ctx context.Context, name string) (string, error) {
		return "", errors.New("export not found")
	}

	resolver := NewResolver(cli, cli, cli)
	_, err := resolver.ResolveCluster(context.Background())
	assert.ErrorContains(t, err, ExportClusterName)
}
