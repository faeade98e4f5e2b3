package e2e

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quickzebra/ghostctl/internal/aws"
	"github.com/quickzebra/ghostctl/internal/config"
	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/manifest"
	"github.com/quickzebra/ghostctl/pkg/resource"
	"github.com/quickzebra/ghostctl/pkg/stack"
)

const deploymentYAML = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: ghost
  namespace: default
  labels:
    app: ghost
spec:
  replicas: 1
`

const serviceYAML = `apiVersion: v1
kind: Service
metadata:
  name: ghost
  namespace: default
spec:
  type: NodePort
`

const ingressYAML = `apiVersion: networking.k8s.io/v1
kind: Ingress
metadata:
  name: ghost
  namespace: default
`

var _ = Describe("Graph synthesis", func() {
	var (
		cli         *aws.MockClient
		manifestDir string
	)

	writeManifests := func() string {
		dir := GinkgoT().TempDir()
		for name, body := range map[string]string{
			manifest.DeploymentFile: deploymentYAML,
			manifest.ServiceFile:    serviceYAML,
			manifest.IngressFile:    ingressYAML,
		} {
			Expect(os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644)).To(Succeed())
		}
		return dir
	}

	synth := func(cfg config.Config) (*graph.Graph, error) {
		ctx := context.Background()

		resolver := stack.NewResolver(cli, cli, cli)
		network, err := resolver.ResolveNetwork(ctx, cfg.VPCName)
		if err != nil {
			return nil, err
		}
		cluster, err := resolver.ResolveCluster(ctx)
		if err != nil {
			return nil, err
		}

		payloads, err := manifest.NewLoader(manifestDir).Load()
		if err != nil {
			return nil, err
		}

		validator, err := manifest.NewValidator()
		if err != nil {
			return nil, err
		}
		violations := validator.Validate(payloads)

		return stack.NewBuilder(cfg, network, cluster, payloads).Build(violations)
	}

	nodeIDs := func(g *graph.Graph) []string {
		ids := make([]string, 0, len(g.Nodes))
		for _, n := range g.Nodes {
			ids = append(ids, n.ID)
		}
		return ids
	}

	nodeByID := func(g *graph.Graph, id string) *graph.Node {
		for i := range g.Nodes {
			if g.Nodes[i].ID == id {
				return &g.Nodes[i]
			}
		}
		return nil
	}

	BeforeEach(func() {
		cli = aws.NewMockClient()
		cli.DescribeClusterFunc = func(ctx context.Context, name string) (*aws.ClusterInfo, error) {
			return &aws.ClusterInfo{
				Name:                   name,
				ClusterSecurityGroupID: "sg-cluster",
				Endpoint:               "https://cluster.example.com",
			}, nil
		}
		manifestDir = writeManifests()
	})

	baseConfig := func(externalSecrets, sgp bool) config.Config {
		return config.Config{
			Account:               "123456789012",
			Region:                "eu-west-1",
			DeployExternalSecrets: externalSecrets,
			DeploySGP:             sgp,
			VPCName:               config.DefaultVPCName,
			ManifestDir:           manifestDir,
		}
	}

	Context("with both features disabled", func() {
		It("builds the minimal graph with cluster-level database access", func() {
			g, err := synth(baseConfig(false, false))
			Expect(err).NotTo(HaveOccurred())

			Expect(nodeIDs(g)).To(ConsistOf(
				stack.NodeDatabaseSecurityGroup,
				stack.NodeDatabase,
				stack.NodeClusterIngressRule,
				stack.NodeSecretMapping,
				stack.NodeDeployment,
				stack.NodeService,
				stack.NodeIngress,
			))

			By("opening the database group to the cluster security group")
			rule := nodeByID(g, stack.NodeClusterIngressRule).Resource.(*resource.SecurityGroupRule)
			Expect(rule.SourceGroupID).To(Equal(graph.LiteralRef("sg-cluster")))
			Expect(rule.Port).To(Equal(int32(3306)))

			By("wiring the secret mapping to the database output only")
			mapping := nodeByID(g, stack.NodeSecretMapping)
			Expect(mapping.DependsOn).To(Equal([]string{stack.NodeDatabase}))

			By("consulting the cloud for the VPC, the exports and the cluster")
			Expect(cli.CallCount("LookupVPC")).To(Equal(1))
			Expect(cli.CallCount("LookupExport")).To(Equal(4))
			Expect(cli.CallCount("DescribeCluster")).To(Equal(1))
		})

		It("produces an executable ordering", func() {
			g, err := synth(baseConfig(false, false))
			Expect(err).NotTo(HaveOccurred())

			dag, err := graph.BuildDAG(g)
			Expect(err).NotTo(HaveOccurred())

			order := dag.GetOrder()
			position := map[string]int{}
			for i, id := range order {
				position[id] = i
			}
			for _, node := range g.Nodes {
				for _, dep := range node.DependsOn {
					Expect(position[dep]).To(BeNumerically("<", position[node.ID]),
						"node %s must come after %s", node.ID, dep)
				}
			}
		})
	})

	Context("with both features enabled", func() {
		It("builds the full graph with pod-level database access", func() {
			g, err := synth(baseConfig(true, true))
			Expect(err).NotTo(HaveOccurred())

			Expect(nodeIDs(g)).To(ConsistOf(
				stack.NodeDatabaseSecurityGroup,
				stack.NodeDatabase,
				stack.NodeExternalSecretsAccess,
				stack.NodeExternalSecretsSA,
				stack.NodeExternalSecretsChart,
				stack.NodePodSecurityGroup,
				stack.NodePodIngressRule,
				stack.NodeSecurityGroupPolicy,
				stack.NodeSecretMapping,
				stack.NodeDeployment,
				stack.NodeService,
				stack.NodeIngress,
			))
			Expect(nodeIDs(g)).NotTo(ContainElement(stack.NodeClusterIngressRule))

			By("chaining access binding -> service account -> chart")
			sa := nodeByID(g, stack.NodeExternalSecretsSA)
			Expect(sa.DependsOn).To(Equal([]string{stack.NodeExternalSecretsAccess}))
			chart := nodeByID(g, stack.NodeExternalSecretsChart)
			Expect(chart.DependsOn).To(Equal([]string{stack.NodeExternalSecretsSA}))

			By("holding the secret mapping until the controller chart is installed")
			mapping := nodeByID(g, stack.NodeSecretMapping)
			Expect(mapping.DependsOn).To(ConsistOf(stack.NodeDatabase, stack.NodeExternalSecretsChart))

			By("binding the pod and kubectl groups to the app pods")
			sgp := nodeByID(g, stack.NodeSecurityGroupPolicy).Resource.(*resource.PodSecurityGroupBinding)
			Expect(sgp.GroupIDs).To(HaveLen(2))
			Expect(sgp.GroupIDs[0]).To(Equal(graph.OutputRef(stack.NodePodSecurityGroup, resource.OutputSecurityGroupID)))
			Expect(sgp.GroupIDs[1]).To(Equal(graph.LiteralRef("mock-" + stack.ExportKubectlSecurityGroupID)))
		})
	})

	Context("with a payload violating the policy", func() {
		It("refuses to build the graph", func() {
			Expect(os.WriteFile(
				filepath.Join(manifestDir, manifest.ServiceFile),
				[]byte("apiVersion: v1\nkind: Pod\nmetadata:\n  name: sneaky\n"),
				0o644,
			)).To(Succeed())

			_, err := synth(baseConfig(false, false))
			Expect(err).To(MatchError(ContainSubstring("validation")))
		})
	})

	Context("when the VPC lookup fails", func() {
		It("aborts before building anything", func() {
			cli.LookupVPCFunc = func(ctx context.Context, name string) (*aws.VPCInfo, error) {
				return nil, errors.New("vpc not found")
			}

			_, err := synth(baseConfig(false, false))
			Expect(err).To(MatchError(ContainSubstring("vpc not found")))
		})
	})
})
