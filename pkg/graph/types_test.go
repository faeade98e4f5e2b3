package graph

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNodeMarshalJSON_IncludesKind(t *testing.T) {
	node := testNode("a")

	data, err := json.Marshal(node)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded["kind"] != string(testKind) {
		t.Errorf("Expected kind %s, got %v", testKind, decoded["kind"])
	}
}

func TestGraphValidate_RequiresMetadata(t *testing.T) {
	g := testGraph(testNode("a"))
	g.Metadata.Name = ""

	if err := g.Validate(); err == nil {
		t.Error("Validate should reject a graph without a name")
	}

	g = testGraph(testNode("a"))
	g.Metadata.Version = ""

	if err := g.Validate(); err == nil {
		t.Error("Validate should reject a graph without a version")
	}
}

func TestGraphValidate_DuplicateIDsRejected(t *testing.T) {
	g := testGraph(testNode("a"), testNode("a"))

	err := g.Validate()
	if err == nil {
		t.Fatal("Validate should reject duplicate node IDs")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Expected duplicate ID error, got: %v", err)
	}
}

func TestGraphValidate_SelfDependencyRejected(t *testing.T) {
	g := testGraph(testNode("a", "a"))

	if err := g.Validate(); err == nil {
		t.Error("Validate should reject a self-dependency")
	}
}

func TestGraphValidate_RefWithoutEdgeRejected(t *testing.T) {
	producer := testNode("a")
	consumer := Node{
		ID: "b",
		Resource: &testResource{
			Name: "b",
			refs: []Ref{OutputRef("a", "id")},
		},
	}

	// Ref to a without a dependsOn edge
	g := testGraph(producer, consumer)
	if err := g.Validate(); err == nil {
		t.Error("Validate should require a dependsOn edge for every output ref")
	}

	// Adding the edge makes it valid
	consumer.DependsOn = []string{"a"}
	g = testGraph(producer, consumer)
	if err := g.Validate(); err != nil {
		t.Errorf("Validate failed on a well-formed graph: %v", err)
	}
}

func TestGraphValidate_BlockingViolationFails(t *testing.T) {
	g := testGraph(testNode("a"))
	g.Violations = []Violation{
		{Path: "file.yaml", Message: "missing kind", Severity: ViolationSeverityError},
	}

	if err := g.Validate(); err == nil {
		t.Error("Validate should fail on an Error-severity violation")
	}

	g.Violations[0].Severity = ViolationSeverityWarning
	if err := g.Validate(); err != nil {
		t.Errorf("Warning-severity violations should not fail validation: %v", err)
	}
}

func TestApplyPolicyValidate_Defaults(t *testing.T) {
	policy := ApplyPolicy{}
	if err := policy.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if policy.Mode != ApplyModeApply {
		t.Errorf("Expected default mode Apply, got %s", policy.Mode)
	}
	if policy.ConflictPolicy != ConflictPolicyError {
		t.Errorf("Expected default conflict policy Error, got %s", policy.ConflictPolicy)
	}
	if policy.FieldManager != DefaultFieldManager {
		t.Errorf("Expected default field manager %s, got %s", DefaultFieldManager, policy.FieldManager)
	}
}

func TestRefValidate(t *testing.T) {
	tests := []struct {
		name    string
		ref     Ref
		wantErr bool
	}{
		{"literal", LiteralRef("sg-1"), false},
		{"output", OutputRef("a", "id"), false},
		{"empty", Ref{}, true},
		{"both", Ref{Literal: "x", Node: "a", Output: "id"}, true},
		{"output without name", Ref{Node: "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRefResolve(t *testing.T) {
	state := NewExecutionState([]string{"a"})
	state.PublishOutputs("a", map[string]string{"id": "sg-1"})

	value, err := LiteralRef("literal-value").Resolve(state)
	if err != nil || value != "literal-value" {
		t.Errorf("Literal resolve = %q, %v", value, err)
	}

	value, err = OutputRef("a", "id").Resolve(state)
	if err != nil || value != "sg-1" {
		t.Errorf("Output resolve = %q, %v", value, err)
	}

	if _, err := OutputRef("a", "missing").Resolve(state); err == nil {
		t.Error("Resolving an unpublished output should fail")
	}
}

func TestNodesOfKind(t *testing.T) {
	g := testGraph(testNode("a"), testNode("b"))

	nodes := g.NodesOfKind(testKind)
	if len(nodes) != 2 {
		t.Errorf("Expected 2 nodes of kind %s, got %d", testKind, len(nodes))
	}

	if nodes := g.NodesOfKind("Other"); len(nodes) != 0 {
		t.Errorf("Expected no nodes of kind Other, got %d", len(nodes))
	}
}
