package stack

import (
	"fmt"

	"github.com/quickzebra/ghostctl/internal/config"
	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/manifest"
	"github.com/quickzebra/ghostctl/pkg/resource"
)

// Node IDs of the Ghost graph
const (
	NodeDatabaseSecurityGroup = "ghost-db-sg"
	NodeDatabase              = "ghost-rds"
	NodeExternalSecretsAccess = "external-secrets-access"
	NodeExternalSecretsSA     = "external-secrets-sa"
	NodeExternalSecretsChart  = "external-secrets-chart"
	NodePodSecurityGroup      = "ghost-pod-sg"
	NodePodIngressRule        = "ghost-pod-sg-rule"
	NodeClusterIngressRule    = "ghost-cluster-sg-rule"
	NodeSecurityGroupPolicy   = "ghost-sgp"
	NodeSecretMapping         = "ghost-external-secret"
	NodeDeployment            = "ghost-deployment"
	NodeService               = "ghost-service"
	NodeIngress               = "ghost-ingress"
)

// Database parameters
const (
	DatabaseSecurityGroupName = "Ghost-DB-SG"
	PodSecurityGroupName      = "Ghost-Pod-SG"
	DatabaseInstanceID        = "ghost-db"
	DatabaseEngine            = "mysql"
	DatabaseEngineVersion     = "8.0.25"
	DatabaseInstanceClass     = "db.t3.micro"
	DatabaseStorageGiB        = 20
	DatabaseName              = "ghost"
	DatabaseMasterUsername    = "root"
	DatabasePort              = 3306
)

// Secret-sync controller parameters
const (
	ExternalSecretsNamespace       = "kube-system"
	ExternalSecretsServiceAccount  = "kubernetes-external-secrets"
	ExternalSecretsRoleName        = "ghost-external-secrets"
	ExternalSecretsPolicyName      = "ghost-external-secrets-read"
	ExternalSecretsChartRepository = "https://external-secrets.github.io/kubernetes-external-secrets/"
	ExternalSecretsChartName       = "kubernetes-external-secrets"
	ExternalSecretsChartVersion    = "8.3.0"
	ExternalSecretsRelease         = "external-secrets"
)

// App-side parameters
const (
	AppNamespace            = "default"
	AppLabelKey             = "app"
	AppLabelValue           = "ghost"
	SecurityGroupPolicyName = "ghost-sgp"
	ClusterSecretName       = "ghost-database"
)

// Graph metadata
const (
	GraphName    = "ghost-stack"
	GraphVersion = "v1"
)

// Builder assembles the Ghost resource graph from the resolved configuration
// and external references
type Builder struct {
	cfg      config.Config
	network  *NetworkRef
	cluster  *ClusterRef
	payloads *manifest.Set
	features []Feature
}

// NewBuilder creates a builder with the default feature set
func NewBuilder(cfg config.Config, network *NetworkRef, cluster *ClusterRef, payloads *manifest.Set) *Builder {
	return &Builder{
		cfg:      cfg,
		network:  network,
		cluster:  cluster,
		payloads: payloads,
		features: DefaultFeatures(),
	}
}

// WithFeatures replaces the feature set
func (b *Builder) WithFeatures(features []Feature) *Builder {
	b.features = features
	return b
}

// Build assembles and validates the graph. Exactly one of the two database
// access fragments is merged; the secret-mapping node gains a dependency on
// the chart node only when the secret-sync feature is enabled.
func (b *Builder) Build(violations []graph.Violation) (*graph.Graph, error) {
	g := &graph.Graph{
		Metadata: graph.GraphMetadata{
			Name:    GraphName,
			Version: GraphVersion,
			Account: b.cfg.Account,
			Region:  b.cfg.Region,
		},
		Violations: violations,
	}

	g.Nodes = append(g.Nodes, b.databaseNodes()...)

	in := Inputs{
		Config:  b.cfg,
		Network: b.network,
		Cluster: b.cluster,
	}
	for _, f := range b.features {
		if !f.Enabled(b.cfg) {
			continue
		}
		g.Nodes = append(g.Nodes, f.Fragment(in)...)
	}

	g.Nodes = append(g.Nodes, b.secretMappingNode())
	g.Nodes = append(g.Nodes, b.payloadNodes()...)

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}
	g.SetHash()

	return g, nil
}

// databaseNodes returns the unconditional fragment: the database security
// group and the database instance scoped to it
func (b *Builder) databaseNodes() []graph.Node {
	return []graph.Node{
		{
			ID: NodeDatabaseSecurityGroup,
			Resource: &resource.SecurityGroup{
				Name:             DatabaseSecurityGroupName,
				Description:      "Ghost database access",
				VPCID:            b.network.VPCID,
				AllowAllOutbound: true,
			},
		},
		{
			ID: NodeDatabase,
			Resource: &resource.Database{
				InstanceIdentifier: DatabaseInstanceID,
				Engine:             DatabaseEngine,
				EngineVersion:      DatabaseEngineVersion,
				InstanceClass:      DatabaseInstanceClass,
				AllocatedStorage:   DatabaseStorageGiB,
				MultiAZ:            false,
				DeletionProtection: false,
				DatabaseName:       DatabaseName,
				MasterUsername:     DatabaseMasterUsername,
				Port:               DatabasePort,
				SubnetIDs:          b.network.PrivateSubnetIDs,
				SecurityGroupIDs: []graph.Ref{
					graph.OutputRef(NodeDatabaseSecurityGroup, resource.OutputSecurityGroupID),
				},
			},
			DependsOn: []string{NodeDatabaseSecurityGroup},
		},
	}
}

// secretMappingNode maps the four connection fields of the generated
// database secret into the cluster secret the deployment consumes
func (b *Builder) secretMappingNode() graph.Node {
	node := graph.Node{
		ID: NodeSecretMapping,
		Resource: &resource.SecretMapping{
			Name:      ClusterSecretName,
			Namespace: AppNamespace,
			SecretRef: graph.OutputRef(NodeDatabase, resource.OutputSecretName),
			Fields: []resource.FieldMapping{
				{Name: "password", Property: "password"},
				{Name: "dbname", Property: "dbname"},
				{Name: "host", Property: "host"},
				{Name: "username", Property: "username"},
			},
		},
		DependsOn: []string{NodeDatabase},
	}

	// The sync object is inert until the controller chart is installed
	if b.cfg.DeployExternalSecrets {
		node.DependsOn = append(node.DependsOn, NodeExternalSecretsChart)
	}

	return node
}

// payloadNodes wraps the three loaded payload files. Only the deployment
// depends on the secret mapping; the service and ingress nodes deliberately
// declare no dependency.
func (b *Builder) payloadNodes() []graph.Node {
	return []graph.Node{
		{
			ID:        NodeDeployment,
			Resource:  &resource.Manifest{Object: b.payloads.Deployment},
			DependsOn: []string{NodeSecretMapping},
			ReadyWhen: []graph.ReadinessPredicate{
				{Type: graph.PredicateTypeDeploymentAvailable},
			},
		},
		{
			ID:       NodeService,
			Resource: &resource.Manifest{Object: b.payloads.Service},
		},
		{
			ID:       NodeIngress,
			Resource: &resource.Manifest{Object: b.payloads.Ingress},
		},
	}
}
