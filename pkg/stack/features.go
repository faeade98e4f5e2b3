package stack

import (
	"github.com/quickzebra/ghostctl/internal/config"
	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/resource"
)

// Inputs carries the resolved references into the feature fragments
type Inputs struct {
	Config  config.Config
	Network *NetworkRef
	Cluster *ClusterRef
}

// Feature contributes a conditional node fragment to the graph
type Feature interface {
	// Name identifies the feature in logs and errors
	Name() string

	// Enabled reports whether the fragment should be merged
	Enabled(cfg config.Config) bool

	// Fragment returns the feature's nodes
	Fragment(in Inputs) []graph.Node
}

// ExternalSecretsFeature provisions the secret-sync controller: a workload
// identity binding, the service account it is bound to, and the controller
// chart release
type ExternalSecretsFeature struct{}

// Name implements Feature
func (ExternalSecretsFeature) Name() string { return "external-secrets" }

// Enabled implements Feature
func (ExternalSecretsFeature) Enabled(cfg config.Config) bool {
	return cfg.DeployExternalSecrets
}

// Fragment implements Feature
func (ExternalSecretsFeature) Fragment(in Inputs) []graph.Node {
	return []graph.Node{
		{
			ID: NodeExternalSecretsAccess,
			Resource: &resource.AccessBinding{
				RoleName:                ExternalSecretsRoleName,
				PolicyName:              ExternalSecretsPolicyName,
				OIDCProviderARN:         in.Cluster.OIDCProviderARN,
				ServiceAccountNamespace: ExternalSecretsNamespace,
				ServiceAccountName:      ExternalSecretsServiceAccount,
				Policy: resource.PolicyDocument{
					Statements: []resource.PolicyStatement{
						{
							Effect: "Allow",
							Actions: []string{
								"secretsmanager:GetResourcePolicy",
								"secretsmanager:GetSecretValue",
								"secretsmanager:DescribeSecret",
								"secretsmanager:ListSecretVersionIds",
							},
							Resources: []string{"*"},
						},
					},
				},
			},
		},
		{
			ID: NodeExternalSecretsSA,
			Resource: &resource.ServiceAccount{
				Name:      ExternalSecretsServiceAccount,
				Namespace: ExternalSecretsNamespace,
				RoleARN:   graph.OutputRef(NodeExternalSecretsAccess, resource.OutputRoleARN),
			},
			DependsOn: []string{NodeExternalSecretsAccess},
		},
		{
			ID: NodeExternalSecretsChart,
			Resource: &resource.HelmChart{
				Repository: ExternalSecretsChartRepository,
				Chart:      ExternalSecretsChartName,
				Version:    ExternalSecretsChartVersion,
				Release:    ExternalSecretsRelease,
				Namespace:  ExternalSecretsNamespace,
				Values: map[string]interface{}{
					"env": map[string]interface{}{
						"AWS_REGION": in.Config.Region,
					},
					"serviceAccount": map[string]interface{}{
						"name":   ExternalSecretsServiceAccount,
						"create": false,
					},
					"securityContext": map[string]interface{}{
						"fsGroup": 65534,
					},
				},
			},
			DependsOn: []string{NodeExternalSecretsSA},
		},
	}
}

// PodSecurityGroupsFeature enforces database access at pod granularity: a
// dedicated pod security group, an ingress rule from it to the database
// group, and the policy object binding it (plus the kubectl group) to the
// app pods
type PodSecurityGroupsFeature struct{}

// Name implements Feature
func (PodSecurityGroupsFeature) Name() string { return "pod-security-groups" }

// Enabled implements Feature
func (PodSecurityGroupsFeature) Enabled(cfg config.Config) bool {
	return cfg.DeploySGP
}

// Fragment implements Feature
func (PodSecurityGroupsFeature) Fragment(in Inputs) []graph.Node {
	return []graph.Node{
		{
			ID: NodePodSecurityGroup,
			Resource: &resource.SecurityGroup{
				Name:             PodSecurityGroupName,
				Description:      "App pod access to the Ghost database",
				VPCID:            in.Network.VPCID,
				AllowAllOutbound: true,
			},
		},
		{
			ID: NodePodIngressRule,
			Resource: &resource.SecurityGroupRule{
				GroupID:       graph.OutputRef(NodeDatabaseSecurityGroup, resource.OutputSecurityGroupID),
				SourceGroupID: graph.OutputRef(NodePodSecurityGroup, resource.OutputSecurityGroupID),
				Port:          DatabasePort,
				Description:   "Ghost pods to MySQL",
			},
			DependsOn: []string{NodeDatabaseSecurityGroup, NodePodSecurityGroup},
		},
		{
			ID: NodeSecurityGroupPolicy,
			Resource: &resource.PodSecurityGroupBinding{
				Name:      SecurityGroupPolicyName,
				Namespace: AppNamespace,
				PodSelector: map[string]string{
					AppLabelKey: AppLabelValue,
				},
				GroupIDs: []graph.Ref{
					graph.OutputRef(NodePodSecurityGroup, resource.OutputSecurityGroupID),
					graph.LiteralRef(in.Cluster.KubectlSecurityGroupID),
				},
			},
			DependsOn: []string{NodePodSecurityGroup},
		},
	}
}

// ClusterAccessFeature is the coarse fallback when pod security groups are
// disabled: a single ingress rule from the cluster security group to the
// database group
type ClusterAccessFeature struct{}

// Name implements Feature
func (ClusterAccessFeature) Name() string { return "cluster-access" }

// Enabled implements Feature
func (ClusterAccessFeature) Enabled(cfg config.Config) bool {
	return !cfg.DeploySGP
}

// Fragment implements Feature
func (ClusterAccessFeature) Fragment(in Inputs) []graph.Node {
	return []graph.Node{
		{
			ID: NodeClusterIngressRule,
			Resource: &resource.SecurityGroupRule{
				GroupID:       graph.OutputRef(NodeDatabaseSecurityGroup, resource.OutputSecurityGroupID),
				SourceGroupID: graph.LiteralRef(in.Cluster.ClusterSecurityGroupID),
				Port:          DatabasePort,
				Description:   "Cluster nodes to MySQL",
			},
			DependsOn: []string{NodeDatabaseSecurityGroup},
		},
	}
}

// DefaultFeatures returns the feature set in merge order
func DefaultFeatures() []Feature {
	return []Feature{
		ExternalSecretsFeature{},
		PodSecurityGroupsFeature{},
		ClusterAccessFeature{},
	}
}
