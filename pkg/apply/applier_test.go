package apply

import (
	"context"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/quickzebra/ghostctl/pkg/graph"
)

func configMap(name string) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "v1",
			"kind":       "ConfigMap",
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": "default",
			},
			"data": map[string]interface{}{
				"key": "value",
			},
		},
	}
}

func TestObjectApplier_ApplySSA(t *testing.T) {
	tests := []struct {
		name    string
		obj     *unstructured.Unstructured
		policy  graph.ApplyPolicy
		wantErr bool
	}{
		{
			name: "apply with default policy",
			obj:  configMap("test-cm"),
			policy: graph.ApplyPolicy{
				Mode:           graph.ApplyModeApply,
				ConflictPolicy: graph.ConflictPolicyError,
				FieldManager:   "test-manager",
			},
			wantErr: false,
		},
		{
			name: "apply with force conflict policy",
			obj:  configMap("test-cm-force"),
			policy: graph.ApplyPolicy{
				Mode:           graph.ApplyModeApply,
				ConflictPolicy: graph.ConflictPolicyForce,
				FieldManager:   "test-manager",
			},
			wantErr: false,
		},
		{
			name:    "nil object",
			obj:     nil,
			policy:  graph.ApplyPolicy{Mode: graph.ApplyModeApply},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fake.NewClientBuilder().Build()
			applier := NewObjectApplier(c)

			err := applier.Apply(context.Background(), tt.obj, tt.policy)
			if (err != nil) != tt.wantErr {
				t.Errorf("Apply() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !tt.wantErr && tt.obj != nil {
				key := client.ObjectKeyFromObject(tt.obj)
				got := &unstructured.Unstructured{}
				got.SetGroupVersionKind(tt.obj.GroupVersionKind())

				if err := c.Get(context.Background(), key, got); err != nil {
					t.Errorf("Failed to get applied object: %v", err)
				}
			}
		})
	}
}

func TestObjectApplier_ApplyCreate(t *testing.T) {
	c := fake.NewClientBuilder().Build()
	applier := NewObjectApplier(c)

	policy := graph.ApplyPolicy{
		Mode:         graph.ApplyModeCreate,
		FieldManager: "test-manager",
	}

	if err := applier.Apply(context.Background(), configMap("test-cm-create"), policy); err != nil {
		t.Fatalf("First Apply() failed: %v", err)
	}

	// Creating an existing object is not an error in Create mode
	if err := applier.Apply(context.Background(), configMap("test-cm-create"), policy); err != nil {
		t.Errorf("Second Apply() should be idempotent, got: %v", err)
	}
}

func TestObjectApplier_ApplyAdopt(t *testing.T) {
	existing := configMap("test-cm-adopt")
	c := fake.NewClientBuilder().WithObjects(existing).Build()
	applier := NewObjectApplier(c)

	policy := graph.ApplyPolicy{
		Mode:         graph.ApplyModeAdopt,
		FieldManager: "test-manager",
	}

	if err := applier.Apply(context.Background(), configMap("test-cm-adopt"), policy); err != nil {
		t.Errorf("Adopt of existing object failed: %v", err)
	}

	// Adopting a missing object falls back to create
	if err := applier.Apply(context.Background(), configMap("test-cm-adopt-new"), policy); err != nil {
		t.Errorf("Adopt of missing object should create it, got: %v", err)
	}

	got := &unstructured.Unstructured{}
	got.SetAPIVersion("v1")
	got.SetKind("ConfigMap")
	key := client.ObjectKey{Namespace: "default", Name: "test-cm-adopt-new"}
	if err := c.Get(context.Background(), key, got); err != nil {
		t.Errorf("Adopted-as-created object not found: %v", err)
	}
}

func TestObjectApplier_UnknownModeRejected(t *testing.T) {
	c := fake.NewClientBuilder().Build()
	applier := NewObjectApplier(c)

	err := applier.Apply(context.Background(), configMap("x"), graph.ApplyPolicy{Mode: "Bogus"})
	if err == nil {
		t.Error("Apply() should reject an unknown mode")
	}
}
