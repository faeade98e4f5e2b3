// Package provision realizes the cloud-side nodes of a resource graph:
// security groups and their rules, the managed database with its generated
// credentials secret, and workload identity bindings. All appliers are
// idempotent; an existing resource is returned instead of recreated.
package provision
