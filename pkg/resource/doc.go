// Package resource defines the typed resource descriptions that graph nodes
// carry: cloud-side resources (security groups, the managed database, IAM
// access bindings) and cluster-side payloads (Helm charts, secret mappings,
// pod security group bindings, opaque manifests).
package resource
