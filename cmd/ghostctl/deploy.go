package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/quickzebra/ghostctl/internal/aws"
	"github.com/quickzebra/ghostctl/internal/config"
	"github.com/quickzebra/ghostctl/pkg/apply"
	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/inventory"
	"github.com/quickzebra/ghostctl/pkg/provision"
	"github.com/quickzebra/ghostctl/pkg/readiness"
	"github.com/quickzebra/ghostctl/pkg/resource"
)

func newDeployCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Build the resource graph and apply it",
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

			dag, err := graph.BuildDAG(g)
			if err != nil {
				return err
			}

			if cfg.DryRun {
				cmd.Println("Dry run, execution order:")
				for i, id := range dag.GetOrder() {
					cmd.Printf("  %2d. %s\n", i+1, id)
				}
				return nil
			}

			return runDeploy(ctx, cmd, cfg, cli, dag)
		},
	}
}

// runDeploy wires the appliers, executes the DAG, prunes if requested, and
// prints the per-node summary
func runDeploy(ctx context.Context, cmd *cobra.Command, cfg config.Config, cli *aws.Client, dag *graph.DAG) error {
	restCfg, err := clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
	if err != nil {
		return fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	kc, err := client.New(restCfg, client.Options{})
	if err != nil {
		return fmt.Errorf("failed to create cluster client: %w", err)
	}

	tracker := inventory.NewTracker()
	if data, err := os.ReadFile(inventoryPath); err == nil {
		if err := tracker.Deserialize(data); err != nil {
			return fmt.Errorf("failed to load inventory %s: %w", inventoryPath, err)
		}
	}

	clusterApplier := apply.NewClusterApplier(apply.NewObjectApplier(kc), tracker)

	executor := graph.NewExecutor(readiness.NewChecker(kc), graph.DefaultExecutorConfig())
	executor.Register(resource.KindSecurityGroup, provision.NewSecurityGroupApplier(cli))
	executor.Register(resource.KindSecurityGroupRule, provision.NewRuleApplier(cli))
	executor.Register(resource.KindDatabase, provision.NewDatabaseApplier(cli, cli))
	executor.Register(resource.KindAccessBinding, provision.NewBindingApplier(cli))
	executor.Register(resource.KindServiceAccount, clusterApplier)
	executor.Register(resource.KindSecretMapping, clusterApplier)
	executor.Register(resource.KindPodSecurityGroupBinding, clusterApplier)
	executor.Register(resource.KindManifest, clusterApplier)
	executor.Register(resource.KindHelmChart, apply.NewHelmApplier(cfg.Kubeconfig))

	state, err := executor.Execute(ctx, dag)
	if err != nil {
		return err
	}

	if cfg.Prune {
		currentIDs := make(map[string]bool, len(dag.GetOrder()))
		for _, id := range dag.GetOrder() {
			currentIDs[id] = true
		}

		pruner := apply.NewPruner(kc)
		result, err := pruner.Prune(ctx, tracker, currentIDs, apply.DefaultPruneOptions())
		if err != nil {
			return err
		}
		for _, p := range result.Pruned {
			cmd.Printf("pruned %s (%s/%s)\n", p.ID, p.Namespace, p.Name)
		}
		for _, e := range result.Errors {
			cmd.Printf("prune error %s: %v\n", e.Object.ID, e.Error)
		}
	}

	if data, err := tracker.Serialize(); err == nil {
		if err := os.WriteFile(inventoryPath, data, 0o644); err != nil {
			cmd.Printf("warning: failed to persist inventory: %v\n", err)
		}
	}

	printSummary(cmd, dag, state)

	if state.HasErrors() {
		return fmt.Errorf("deploy finished with errors")
	}
	return nil
}

// printSummary prints the per-node outcome in execution order
func printSummary(cmd *cobra.Command, dag *graph.DAG, state *graph.ExecutionState) {
	summary := state.GetSummary()
	cmd.Printf("\n%d nodes: %d ready, %d errored\n", summary.Total, summary.Ready, summary.Error)

	for _, id := range dag.GetOrder() {
		status, err := state.GetStatus(id)
		if err != nil {
			continue
		}
		if status.State == graph.NodeStateError {
			cmd.Printf("  %-28s %s: %s\n", id, status.State, status.Error)
			continue
		}
		cmd.Printf("  %-28s %s\n", id, status.State)
	}
}
