package apply

import (
	"context"
	"fmt"
	"os"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/kube"
	"helm.sh/helm/v3/pkg/repo"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/metrics"
	"github.com/quickzebra/ghostctl/pkg/resource"
)

// defaultHelmTimeout bounds install and upgrade operations
const defaultHelmTimeout = 10 * time.Minute

// HelmApplier realizes chart release nodes. Installs are idempotent: an
// existing release is upgraded to the declared chart version and values.
type HelmApplier struct {
	kubeconfig string
}

// NewHelmApplier creates a chart applier using the given kubeconfig path.
// An empty path falls back to the ambient kubeconfig resolution.
func NewHelmApplier(kubeconfig string) *HelmApplier {
	return &HelmApplier{kubeconfig: kubeconfig}
}

// Apply implements graph.Applier
func (h *HelmApplier) Apply(ctx context.Context, node *graph.Node, out graph.Outputs) (map[string]string, error) {
	chartRes, ok := node.Resource.(*resource.HelmChart)
	if !ok {
		return nil, fmt.Errorf("node %s: resource is not a helm chart", node.ID)
	}

	logger := log.FromContext(ctx).WithValues(
		"release", chartRes.Release,
		"chart", chartRes.Chart,
		"version", chartRes.Version,
		"namespace", chartRes.Namespace,
	)

	actionConfig := new(action.Configuration)
	restGetter := kube.GetConfig(h.kubeconfig, "", chartRes.Namespace)
	if err := actionConfig.Init(restGetter, chartRes.Namespace, "secret", func(format string, v ...interface{}) {
		logger.V(2).Info(fmt.Sprintf(format, v...))
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
	}

	startTime := time.Now()
	err := h.installOrUpgrade(ctx, actionConfig, chartRes)
	duration := time.Since(startTime).Seconds()

	if err != nil {
		metrics.RecordApply("failure", string(node.ApplyPolicy.Mode), string(resource.KindHelmChart), duration)
		return nil, err
	}

	metrics.RecordApply("success", string(node.ApplyPolicy.Mode), string(resource.KindHelmChart), duration)
	metrics.RecordNodeRealized(string(resource.KindHelmChart))
	logger.V(1).Info("Chart release converged", "duration_ms", duration*1000)
	return nil, nil
}

// installOrUpgrade installs the chart or upgrades if the release exists
func (h *HelmApplier) installOrUpgrade(ctx context.Context, actionConfig *action.Configuration, chartRes *resource.HelmChart) error {
	histClient := action.NewHistory(actionConfig)
	histClient.Max = 1
	_, err := histClient.Run(chartRes.Release)

	if err != nil {
		// Release doesn't exist, install
		return h.install(ctx, actionConfig, chartRes)
	}
	return h.upgrade(ctx, actionConfig, chartRes)
}

func (h *HelmApplier) install(ctx context.Context, actionConfig *action.Configuration, chartRes *resource.HelmChart) error {
	installClient := action.NewInstall(actionConfig)
	installClient.ReleaseName = chartRes.Release
	installClient.Namespace = chartRes.Namespace
	installClient.CreateNamespace = true
	installClient.Version = chartRes.Version
	installClient.Wait = true
	installClient.Timeout = defaultHelmTimeout

	loaded, err := h.loadChart(chartRes)
	if err != nil {
		return fmt.Errorf("failed to load chart: %w", err)
	}

	if _, err := installClient.RunWithContext(ctx, loaded, chartRes.Values); err != nil {
		return fmt.Errorf("failed to install release %s: %w", chartRes.Release, err)
	}
	return nil
}

func (h *HelmApplier) upgrade(ctx context.Context, actionConfig *action.Configuration, chartRes *resource.HelmChart) error {
	upgradeClient := action.NewUpgrade(actionConfig)
	upgradeClient.Namespace = chartRes.Namespace
	upgradeClient.Version = chartRes.Version
	upgradeClient.Wait = true
	upgradeClient.Timeout = defaultHelmTimeout
	upgradeClient.ReuseValues = false

	loaded, err := h.loadChart(chartRes)
	if err != nil {
		return fmt.Errorf("failed to load chart: %w", err)
	}

	if _, err := upgradeClient.RunWithContext(ctx, chartRes.Release, loaded, chartRes.Values); err != nil {
		return fmt.Errorf("failed to upgrade release %s: %w", chartRes.Release, err)
	}
	return nil
}

// loadChart downloads the chart from its repository and loads it
func (h *HelmApplier) loadChart(chartRes *resource.HelmChart) (*chart.Chart, error) {
	settings := cli.New()

	chartPath, err := repo.FindChartInRepoURL(
		chartRes.Repository,
		chartRes.Chart,
		chartRes.Version,
		"", "", "",
		getter.All(settings),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", chartRes.Chart, chartRes.Repository, err)
	}

	defer func() {
		_ = os.Remove(chartPath)
	}()

	return loader.Load(chartPath)
}
