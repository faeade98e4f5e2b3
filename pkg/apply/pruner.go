package apply

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/quickzebra/ghostctl/pkg/inventory"
)

// ProtectionAnnotation prevents an object from being pruned
const ProtectionAnnotation = "ghostctl.io/prune-protection"

// PruneOptions configures pruning behavior
type PruneOptions struct {
	// DryRun if true, only reports what would be pruned without deleting
	DryRun bool

	// PropagationPolicy for deletion (Orphan, Background, Foreground)
	PropagationPolicy *metav1.DeletionPropagation
}

// DefaultPruneOptions returns default pruning options
func DefaultPruneOptions() PruneOptions {
	background := metav1.DeletePropagationBackground
	return PruneOptions{
		DryRun:            false,
		PropagationPolicy: &background,
	}
}

// PruneResult contains the result of a prune operation
type PruneResult struct {
	// Pruned contains objects that were deleted
	Pruned []PrunedObject

	// Protected contains objects that were protected from pruning
	Protected []PrunedObject

	// Errors contains any errors that occurred during pruning
	Errors []PruneError
}

// PrunedObject describes an object considered for pruning
type PrunedObject struct {
	ID        string
	GVK       schema.GroupVersionKind
	Namespace string
	Name      string
}

// PruneError describes an error that occurred during pruning
type PruneError struct {
	Object PrunedObject
	Error  error
}

// Pruner deletes cluster objects whose graph node disappeared
type Pruner struct {
	client client.Client
}

// NewPruner creates a new pruner
func NewPruner(c client.Client) *Pruner {
	return &Pruner{
		client: c,
	}
}

// Prune removes orphaned objects from the cluster. The tracker supplies the
// previously realized objects; currentNodeIDs names the nodes of the graph
// just applied.
func (p *Pruner) Prune(ctx context.Context, tracker *inventory.Tracker, currentNodeIDs map[string]bool, opts PruneOptions) (*PruneResult, error) {
	logger := log.FromContext(ctx)
	result := &PruneResult{}

	orphaned := tracker.FindOrphaned(currentNodeIDs)

	if len(orphaned) == 0 {
		logger.V(1).Info("No orphaned objects to prune")
		return result, nil
	}

	logger.Info("Found orphaned objects", "count", len(orphaned))

	for _, item := range orphaned {
		pruned := PrunedObject{
			ID:        item.ID,
			GVK:       item.GVK,
			Namespace: item.Namespace,
			Name:      item.Name,
		}

		obj := &unstructured.Unstructured{}
		obj.SetGroupVersionKind(item.GVK)

		err := p.client.Get(ctx, client.ObjectKey{
			Namespace: item.Namespace,
			Name:      item.Name,
		}, obj)

		if errors.IsNotFound(err) {
			// Already gone, just update the tracker
			logger.V(1).Info("Object already deleted", "id", item.ID)
			tracker.Remove(item.ID)
			continue
		}

		if err != nil {
			result.Errors = append(result.Errors, PruneError{
				Object: pruned,
				Error:  fmt.Errorf("failed to get object: %w", err),
			})
			continue
		}

		if isProtected(obj) {
			logger.Info("Object is protected from pruning", "id", item.ID)
			result.Protected = append(result.Protected, pruned)
			continue
		}

		if opts.DryRun {
			logger.Info("Would prune object (dry-run)", "id", item.ID, "gvk", item.GVK)
			result.Pruned = append(result.Pruned, pruned)
			continue
		}

		if err := p.deleteObject(ctx, obj, opts); err != nil {
			result.Errors = append(result.Errors, PruneError{
				Object: pruned,
				Error:  err,
			})
			continue
		}

		logger.Info("Pruned object", "id", item.ID, "gvk", item.GVK)
		tracker.RecordPruned(item.ID)
		result.Pruned = append(result.Pruned, pruned)
	}

	return result, nil
}

// isProtected checks for the protection annotation
func isProtected(obj *unstructured.Unstructured) bool {
	annotations := obj.GetAnnotations()
	if annotations == nil {
		return false
	}

	if val, ok := annotations[ProtectionAnnotation]; ok {
		return val == "true" || val == "yes" || val == "1"
	}

	return false
}

// deleteObject deletes an object from the cluster
func (p *Pruner) deleteObject(ctx context.Context, obj *unstructured.Unstructured, opts PruneOptions) error {
	deleteOpts := []client.DeleteOption{}

	if opts.PropagationPolicy != nil {
		deleteOpts = append(deleteOpts, client.PropagationPolicy(*opts.PropagationPolicy))
	}

	if err := p.client.Delete(ctx, obj, deleteOpts...); err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}
