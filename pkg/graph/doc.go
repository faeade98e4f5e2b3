// Package graph provides types and utilities for managing dependency graphs
// of cloud and Kubernetes resource descriptions. It includes the Graph
// artifact representation, DAG building, and execution logic for realizing
// resources in dependency order through per-kind appliers.
package graph
