package graph

import "fmt"

// Ref identifies a string value that is either known at synthesis time or
// produced by another node during execution. Cross-node references are how
// generated identifiers (security group ids, secret names) flow through the
// graph without the builder knowing them up front.
type Ref struct {
	// Literal is a value known at synthesis time
	Literal string `json:"literal,omitempty"`

	// Node is the ID of the node that produces the value
	Node string `json:"node,omitempty"`

	// Output is the name of the output published by that node
	Output string `json:"output,omitempty"`
}

// LiteralRef returns a Ref holding a value known at synthesis time
func LiteralRef(value string) Ref {
	return Ref{Literal: value}
}

// OutputRef returns a Ref to a named output of another node
func OutputRef(nodeID, output string) Ref {
	return Ref{Node: nodeID, Output: output}
}

// IsZero reports whether the Ref is empty
func (r Ref) IsZero() bool {
	return r.Literal == "" && r.Node == ""
}

// IsOutput reports whether the Ref points at another node's output
func (r Ref) IsOutput() bool {
	return r.Node != ""
}

// Validate checks that the Ref is well-formed
func (r Ref) Validate() error {
	if r.IsZero() {
		return fmt.Errorf("ref is empty")
	}
	if r.Literal != "" && r.Node != "" {
		return fmt.Errorf("ref cannot be both literal and output")
	}
	if r.Node != "" && r.Output == "" {
		return fmt.Errorf("output ref to node %s is missing the output name", r.Node)
	}
	return nil
}

// Outputs provides read access to values published by realized nodes
type Outputs interface {
	// Output returns the named output of a node, if published
	Output(nodeID, name string) (string, bool)
}

// Resolve returns the concrete value of the Ref, consulting outputs of
// already-realized nodes for output refs
func (r Ref) Resolve(out Outputs) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	if r.Literal != "" {
		return r.Literal, nil
	}
	value, found := out.Output(r.Node, r.Output)
	if !found {
		return "", fmt.Errorf("node %s has not published output %q", r.Node, r.Output)
	}
	return value, nil
}

// String renders the Ref for logs and error messages
func (r Ref) String() string {
	if r.Node != "" {
		return fmt.Sprintf("${%s.%s}", r.Node, r.Output)
	}
	return r.Literal
}
