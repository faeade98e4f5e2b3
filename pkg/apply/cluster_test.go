package apply

import (
	"context"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/inventory"
	"github.com/quickzebra/ghostctl/pkg/resource"
)

// stubOutputs is a fixed set of published node outputs
type stubOutputs map[string]map[string]string

func (s stubOutputs) Output(nodeID, name string) (string, bool) {
	outputs, ok := s[nodeID]
	if !ok {
		return "", false
	}
	value, ok := outputs[name]
	return value, ok
}

func secretMappingNode() *graph.Node {
	return &graph.Node{
		ID: "ghost-external-secret",
		Resource: &resource.SecretMapping{
			Name:      "ghost-database",
			Namespace: "default",
			SecretRef: graph.OutputRef("ghost-rds", "secret_name"),
			Fields: []resource.FieldMapping{
				{Name: "password", Property: "password"},
			},
		},
		DependsOn: []string{"ghost-rds"},
	}
}

func TestClusterApplier_AppliesResolvedObject(t *testing.T) {
	c := fake.NewClientBuilder().Build()
	tracker := inventory.NewTracker()
	applier := NewClusterApplier(NewObjectApplier(c), tracker)

	out := stubOutputs{
		"ghost-rds": {"secret_name": "ghost-db-credentials"},
	}

	outputs, err := applier.Apply(context.Background(), secretMappingNode(), out)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if outputs != nil {
		t.Errorf("Cluster nodes publish no outputs, got %v", outputs)
	}

	got := &unstructured.Unstructured{}
	got.SetAPIVersion(resource.ExternalSecretAPIVersion)
	got.SetKind("ExternalSecret")
	key := client.ObjectKey{Namespace: "default", Name: "ghost-database"}
	if err := c.Get(context.Background(), key, got); err != nil {
		t.Fatalf("Applied object not found: %v", err)
	}

	item, found := tracker.Get("ghost-external-secret")
	if !found {
		t.Fatal("Tracker should record the applied node")
	}
	if item.Name != "ghost-database" || item.Namespace != "default" {
		t.Errorf("Tracker recorded wrong identity: %s/%s", item.Namespace, item.Name)
	}
}

func TestClusterApplier_UnresolvedRefFails(t *testing.T) {
	c := fake.NewClientBuilder().Build()
	applier := NewClusterApplier(NewObjectApplier(c), nil)

	// No outputs published for ghost-rds
	if _, err := applier.Apply(context.Background(), secretMappingNode(), stubOutputs{}); err == nil {
		t.Error("Apply() should fail when the secret ref is unresolved")
	}
}

func TestClusterApplier_ManifestPassthrough(t *testing.T) {
	c := fake.NewClientBuilder().Build()
	applier := NewClusterApplier(NewObjectApplier(c), nil)

	node := &graph.Node{
		ID: "ghost-service",
		Resource: &resource.Manifest{
			Object: *configMap("payload"),
		},
	}

	if _, err := applier.Apply(context.Background(), node, stubOutputs{}); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	got := &unstructured.Unstructured{}
	got.SetAPIVersion("v1")
	got.SetKind("ConfigMap")
	key := client.ObjectKey{Namespace: "default", Name: "payload"}
	if err := c.Get(context.Background(), key, got); err != nil {
		t.Errorf("Manifest payload not applied: %v", err)
	}
}

func TestClusterApplier_UnsupportedKindRejected(t *testing.T) {
	c := fake.NewClientBuilder().Build()
	applier := NewClusterApplier(NewObjectApplier(c), nil)

	node := &graph.Node{
		ID: "ghost-rds",
		Resource: &resource.Database{
			InstanceIdentifier: "ghost-db",
			Engine:             "mysql",
		},
	}

	if _, err := applier.Apply(context.Background(), node, stubOutputs{}); err == nil {
		t.Error("Apply() should reject cloud-side resource kinds")
	}
}
