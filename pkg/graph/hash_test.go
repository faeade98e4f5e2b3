package graph

import (
	"testing"
)

func TestComputeHash_Deterministic(t *testing.T) {
	g1 := testGraph(testNode("a"), testNode("b", "a"))
	g2 := testGraph(testNode("a"), testNode("b", "a"))

	if g1.ComputeHash() != g2.ComputeHash() {
		t.Error("Identical graphs should hash identically")
	}
}

func TestComputeHash_IgnoresMetadata(t *testing.T) {
	g1 := testGraph(testNode("a"))
	g2 := testGraph(testNode("a"))
	g2.Metadata.Name = "other"
	g2.Metadata.Account = "123456789012"

	if g1.ComputeHash() != g2.ComputeHash() {
		t.Error("Metadata should not affect the hash")
	}
}

func TestComputeHash_NodeChangesHash(t *testing.T) {
	g1 := testGraph(testNode("a"))
	g2 := testGraph(testNode("a"), testNode("b", "a"))

	if g1.ComputeHash() == g2.ComputeHash() {
		t.Error("Adding a node should change the hash")
	}
}

func TestComputeHash_ViolationsChangeHash(t *testing.T) {
	g1 := testGraph(testNode("a"))
	g2 := testGraph(testNode("a"))
	g2.Violations = []Violation{
		{Path: "x", Message: "bad", Severity: ViolationSeverityWarning},
	}

	if g1.ComputeHash() == g2.ComputeHash() {
		t.Error("Violations should affect the hash")
	}
}

func TestSetHashAndHasChanged(t *testing.T) {
	g := testGraph(testNode("a"))
	g.SetHash()

	if g.Metadata.RenderHash == "" {
		t.Fatal("SetHash should populate the render hash")
	}

	if g.HasChanged(g.Metadata.RenderHash) {
		t.Error("Unchanged graph should not report a change")
	}

	if !g.HasChanged("") {
		t.Error("Empty previous hash should always report a change")
	}

	g.Nodes = append(g.Nodes, testNode("b", "a"))
	if !g.HasChanged(g.Metadata.RenderHash) {
		t.Error("Modified graph should report a change")
	}
}
