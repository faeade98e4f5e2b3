// ghostctl synthesizes the Ghost resource graph for a pre-existing EKS
// cluster and applies it: a MySQL database with generated credentials, the
// optional secret-sync and pod-security-group features, and the app
// manifests.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/quickzebra/ghostctl/internal/aws"
	"github.com/quickzebra/ghostctl/internal/config"
	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/manifest"
	"github.com/quickzebra/ghostctl/pkg/stack"
)

var (
	contextPairs  []string
	manifestDir   string
	kubeconfig    string
	inventoryPath string
	dryRun        bool
	prune         bool
)

func main() {
	ctrl.SetLogger(zap.New())

	root := &cobra.Command{
		Use:           "ghostctl",
		Short:         "Provision the Ghost stack onto a pre-existing EKS cluster",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringArrayVar(&contextPairs, "context", nil, "configuration context as key=value, repeatable")
	root.PersistentFlags().StringVar(&manifestDir, "manifest-dir", "manifests", "directory holding the payload documents")
	root.PersistentFlags().StringVar(&kubeconfig, "kubeconfig", os.Getenv("KUBECONFIG"), "path to the cluster credentials")
	root.PersistentFlags().StringVar(&inventoryPath, "inventory", ".ghostctl-inventory.json", "path to the persisted apply inventory")
	root.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "preview without mutating anything")
	root.PersistentFlags().BoolVar(&prune, "prune", false, "delete cluster objects no longer present in the graph")

	root.AddCommand(newSynthCommand())
	root.AddCommand(newDeployCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig parses the context flags and resolves the run configuration
func resolveConfig() (config.Config, error) {
	cc, err := config.ParseContext(contextPairs)
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Resolve(cc)
	if err != nil {
		return config.Config{}, err
	}

	cfg.ManifestDir = manifestDir
	cfg.Kubeconfig = kubeconfig
	cfg.DryRun = dryRun
	cfg.Prune = prune
	return cfg, nil
}

// synthesize resolves the external references, loads and validates the
// payloads, and builds the graph
func synthesize(ctx context.Context, cfg config.Config, cli *aws.Client) (*graph.Graph, error) {
	resolver := stack.NewResolver(cli, cli, cli)

	network, err := resolver.ResolveNetwork(ctx, cfg.VPCName)
	if err != nil {
		return nil, err
	}
	cluster, err := resolver.ResolveCluster(ctx)
	if err != nil {
		return nil, err
	}

	payloads, err := manifest.NewLoader(cfg.ManifestDir).Load()
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

func newSynthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "synth",
		Short: "Build and print the resource graph as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			cli, err := aws.NewClient(ctx, cfg.Account, cfg.Region)
			if err != nil {
				return err
			}

			g, err := synthesize(ctx, cfg, cli)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(g, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal graph: %w", err)
			}
			cmd.Println(string(data))
			return nil
		},
	}
}
