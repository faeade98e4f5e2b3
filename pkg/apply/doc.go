// Package apply realizes the cluster-side nodes of a resource graph. It
// includes the Server-Side Apply object applier, renderers for the typed
// cluster resources, the Helm chart applier, and the inventory-driven
// pruner for orphaned objects.
package apply
