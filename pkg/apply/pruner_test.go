package apply

import (
	"context"
	"testing"

	"k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/quickzebra/ghostctl/pkg/inventory"
)

func trackedConfigMap(t *testing.T, tracker *inventory.Tracker, nodeID, name string, annotations map[string]string) *unstructured.Unstructured {
	t.Helper()

	obj := configMap(name)
	if annotations != nil {
		obj.SetAnnotations(annotations)
	}
	tracker.RecordApplied(nodeID, obj)
	return obj
}

func TestPruner_RemovesOrphanedObjects(t *testing.T) {
	tracker := inventory.NewTracker()
	kept := trackedConfigMap(t, tracker, "node-kept", "cm-kept", nil)
	orphan := trackedConfigMap(t, tracker, "node-orphan", "cm-orphan", nil)

	c := fake.NewClientBuilder().WithObjects(kept, orphan).Build()
	pruner := NewPruner(c)

	current := map[string]bool{"node-kept": true}
	result, err := pruner.Prune(context.Background(), tracker, current, DefaultPruneOptions())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	if len(result.Pruned) != 1 || result.Pruned[0].Name != "cm-orphan" {
		t.Errorf("Expected cm-orphan to be pruned, got %+v", result.Pruned)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Unexpected prune errors: %+v", result.Errors)
	}

	got := &unstructured.Unstructured{}
	got.SetGroupVersionKind(orphan.GroupVersionKind())
	err = c.Get(context.Background(), client.ObjectKeyFromObject(orphan), got)
	if !errors.IsNotFound(err) {
		t.Errorf("Orphaned object should be deleted, got err=%v", err)
	}

	if err := c.Get(context.Background(), client.ObjectKeyFromObject(kept), got); err != nil {
		t.Errorf("Current object should survive pruning: %v", err)
	}

	item, found := tracker.Get("node-orphan")
	if !found || item.Status != inventory.ItemStatusPruned {
		t.Errorf("Tracker should mark the orphan pruned, got %+v (found=%v)", item, found)
	}
}

func TestPruner_ProtectedObjectsSurvive(t *testing.T) {
	tracker := inventory.NewTracker()
	protected := trackedConfigMap(t, tracker, "node-protected", "cm-protected", map[string]string{
		ProtectionAnnotation: "true",
	})

	c := fake.NewClientBuilder().WithObjects(protected).Build()
	pruner := NewPruner(c)

	result, err := pruner.Prune(context.Background(), tracker, map[string]bool{}, DefaultPruneOptions())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	if len(result.Protected) != 1 || result.Protected[0].Name != "cm-protected" {
		t.Errorf("Expected cm-protected in protected list, got %+v", result.Protected)
	}
	if len(result.Pruned) != 0 {
		t.Errorf("Protected objects must not be pruned: %+v", result.Pruned)
	}

	got := &unstructured.Unstructured{}
	got.SetGroupVersionKind(protected.GroupVersionKind())
	if err := c.Get(context.Background(), client.ObjectKeyFromObject(protected), got); err != nil {
		t.Errorf("Protected object should still exist: %v", err)
	}
}

func TestPruner_DryRunDeletesNothing(t *testing.T) {
	tracker := inventory.NewTracker()
	orphan := trackedConfigMap(t, tracker, "node-orphan", "cm-orphan", nil)

	c := fake.NewClientBuilder().WithObjects(orphan).Build()
	pruner := NewPruner(c)

	opts := DefaultPruneOptions()
	opts.DryRun = true

	result, err := pruner.Prune(context.Background(), tracker, map[string]bool{}, opts)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	if len(result.Pruned) != 1 {
		t.Errorf("Dry-run should report the orphan, got %+v", result.Pruned)
	}

	got := &unstructured.Unstructured{}
	got.SetGroupVersionKind(orphan.GroupVersionKind())
	if err := c.Get(context.Background(), client.ObjectKeyFromObject(orphan), got); err != nil {
		t.Errorf("Dry-run must not delete anything: %v", err)
	}
}

func TestPruner_AlreadyDeletedObjectForgotten(t *testing.T) {
	tracker := inventory.NewTracker()
	trackedConfigMap(t, tracker, "node-gone", "cm-gone", nil)

	// The object was never created in the cluster
	c := fake.NewClientBuilder().Build()
	pruner := NewPruner(c)

	result, err := pruner.Prune(context.Background(), tracker, map[string]bool{}, DefaultPruneOptions())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	if len(result.Pruned) != 0 || len(result.Errors) != 0 {
		t.Errorf("Missing objects should be skipped silently, got %+v", result)
	}

	if _, found := tracker.Get("node-gone"); found {
		t.Error("Tracker should drop entries for already-deleted objects")
	}
}
