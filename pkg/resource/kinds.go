package resource

import "github.com/quickzebra/ghostctl/pkg/graph"

// Resource kinds dispatched by the executor
const (
	// KindSecurityGroup is a VPC security group
	KindSecurityGroup graph.ResourceKind = "SecurityGroup"

	// KindSecurityGroupRule is an ingress rule between two security groups
	KindSecurityGroupRule graph.ResourceKind = "SecurityGroupRule"

	// KindDatabase is a managed relational database instance
	KindDatabase graph.ResourceKind = "Database"

	// KindAccessBinding is a workload identity role with an attached policy
	KindAccessBinding graph.ResourceKind = "AccessBinding"

	// KindServiceAccount is a cluster service account bound to an identity role
	KindServiceAccount graph.ResourceKind = "ServiceAccount"

	// KindHelmChart is a Helm chart release inside the cluster
	KindHelmChart graph.ResourceKind = "HelmChart"

	// KindSecretMapping maps fields of a cloud secret into a cluster secret
	KindSecretMapping graph.ResourceKind = "SecretMapping"

	// KindPodSecurityGroupBinding binds security groups to selected pods
	KindPodSecurityGroupBinding graph.ResourceKind = "PodSecurityGroupBinding"

	// KindManifest is an opaque declarative payload submitted to the cluster
	KindManifest graph.ResourceKind = "Manifest"
)

// Well-known output names published by appliers
const (
	// OutputSecurityGroupID is the id of a realized security group
	OutputSecurityGroupID = "security_group_id"

	// OutputSecretName is the name of the generated credentials secret
	OutputSecretName = "secret_name"

	// OutputSecretARN is the ARN of the generated credentials secret
	OutputSecretARN = "secret_arn"

	// OutputEndpoint is the connection endpoint of the database
	OutputEndpoint = "endpoint"

	// OutputRoleARN is the ARN of a realized identity role
	OutputRoleARN = "role_arn"
)
