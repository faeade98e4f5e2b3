// Package stack builds the Ghost resource graph: external reference
// resolution, the unconditional database fragment, the feature-gated
// secret-sync and pod-security-group fragments, and the static payload
// nodes.
package stack
