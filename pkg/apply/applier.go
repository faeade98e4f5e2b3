package apply

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/metrics"
)

// ObjectApplier submits unstructured objects to the cluster according to an
// ApplyPolicy
type ObjectApplier struct {
	client client.Client
	dryRun bool
}

// NewObjectApplier creates an object applier backed by the given client
func NewObjectApplier(c client.Client) *ObjectApplier {
	return &ObjectApplier{
		client: c,
		dryRun: false,
	}
}

// WithDryRun returns a new applier with dry-run mode enabled
func (a *ObjectApplier) WithDryRun(dryRun bool) *ObjectApplier {
	return &ObjectApplier{
		client: a.client,
		dryRun: dryRun,
	}
}

// gvkString returns a string representation of an object's GVK
func gvkString(obj *unstructured.Unstructured) string {
	gvk := obj.GroupVersionKind()
	if gvk.Group == "" {
		return fmt.Sprintf("%s/%s", gvk.Version, gvk.Kind)
	}
	return fmt.Sprintf("%s/%s/%s", gvk.Group, gvk.Version, gvk.Kind)
}

// Apply submits an object according to its ApplyPolicy
func (a *ObjectApplier) Apply(ctx context.Context, obj *unstructured.Unstructured, policy graph.ApplyPolicy) error {
	if obj == nil {
		return fmt.Errorf("object cannot be nil")
	}

	if err := policy.Validate(); err != nil {
		return fmt.Errorf("invalid apply policy: %w", err)
	}

	logger := log.FromContext(ctx).WithValues(
		"gvk", gvkString(obj),
		"namespace", obj.GetNamespace(),
		"name", obj.GetName(),
		"mode", string(policy.Mode),
	)

	startTime := time.Now()
	var err error

	switch policy.Mode {
	case graph.ApplyModeApply:
		err = a.applySSA(ctx, obj, policy, logger)
	case graph.ApplyModeCreate:
		err = a.applyCreate(ctx, obj, logger)
	case graph.ApplyModeAdopt:
		err = a.applyAdopt(ctx, obj, policy, logger)
	default:
		err = fmt.Errorf("unknown apply mode: %s", policy.Mode)
	}

	duration := time.Since(startTime).Seconds()
	gvk := gvkString(obj)
	if err != nil {
		metrics.RecordApply("failure", string(policy.Mode), gvk, duration)
		logger.Error(err, "Failed to apply object")
	} else {
		metrics.RecordApply("success", string(policy.Mode), gvk, duration)
		logger.V(1).Info("Successfully applied object", "duration_ms", duration*1000)
	}

	return err
}

// applySSA applies an object using Server-Side Apply
func (a *ObjectApplier) applySSA(ctx context.Context, obj *unstructured.Unstructured, policy graph.ApplyPolicy, logger logr.Logger) error {
	patchOpts := []client.PatchOption{
		client.FieldOwner(policy.FieldManager),
	}

	if policy.ConflictPolicy == graph.ConflictPolicyForce {
		patchOpts = append(patchOpts, client.ForceOwnership)
		logger.V(2).Info("Using force ownership for SSA")
	}

	if a.dryRun {
		patchOpts = append(patchOpts, client.DryRunAll)
		logger.V(1).Info("Running in dry-run mode")
	}

	logger.V(2).Info("Applying object via SSA", "fieldManager", policy.FieldManager)

	if err := a.client.Patch(ctx, obj, client.Apply, patchOpts...); err != nil {
		if errors.IsConflict(err) {
			return &ConflictError{
				Resource:     fmt.Sprintf("%s/%s", obj.GetNamespace(), obj.GetName()),
				FieldManager: policy.FieldManager,
				Err:          err,
			}
		}
		return fmt.Errorf("failed to apply object %s/%s: %w", obj.GetNamespace(), obj.GetName(), err)
	}

	return nil
}

// applyCreate creates an object only if it doesn't exist
func (a *ObjectApplier) applyCreate(ctx context.Context, obj *unstructured.Unstructured, logger logr.Logger) error {
	createOpts := []client.CreateOption{}
	if a.dryRun {
		createOpts = append(createOpts, client.DryRunAll)
		logger.V(1).Info("Running in dry-run mode")
	}

	logger.V(2).Info("Creating object")

	if err := a.client.Create(ctx, obj, createOpts...); err != nil {
		if errors.IsAlreadyExists(err) {
			// Already there is not an error for Create mode
			logger.V(1).Info("Object already exists, skipping creation")
			return nil
		}
		return fmt.Errorf("failed to create object %s/%s: %w", obj.GetNamespace(), obj.GetName(), err)
	}

	logger.V(1).Info("Object created successfully")
	return nil
}

// applyAdopt adopts an existing object by taking field ownership
func (a *ObjectApplier) applyAdopt(ctx context.Context, obj *unstructured.Unstructured, policy graph.ApplyPolicy, logger logr.Logger) error {
	key := client.ObjectKeyFromObject(obj)
	existing := &unstructured.Unstructured{}
	existing.SetGroupVersionKind(obj.GroupVersionKind())

	logger.V(2).Info("Checking if object exists for adoption")

	if err := a.client.Get(ctx, key, existing); err != nil {
		if errors.IsNotFound(err) {
			logger.V(1).Info("Object not found, creating instead of adopting")
			return a.applyCreate(ctx, obj, logger)
		}
		return fmt.Errorf("failed to check if object exists: %w", err)
	}

	logger.V(1).Info("Adopting existing object", "existingUID", existing.GetUID())

	// Adoption always forces ownership of all fields
	patchOpts := []client.PatchOption{
		client.FieldOwner(policy.FieldManager),
		client.ForceOwnership,
	}

	if a.dryRun {
		patchOpts = append(patchOpts, client.DryRunAll)
		logger.V(1).Info("Running in dry-run mode")
	}

	if err := a.client.Patch(ctx, obj, client.Apply, patchOpts...); err != nil {
		return fmt.Errorf("failed to adopt object %s/%s: %w", obj.GetNamespace(), obj.GetName(), err)
	}

	logger.V(1).Info("Object adopted successfully")
	return nil
}

// ConflictError represents a field manager conflict
type ConflictError struct {
	Resource     string
	FieldManager string
	Err          error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("field manager conflict for %s (field manager: %s): %v", e.Resource, e.FieldManager, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
