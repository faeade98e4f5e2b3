package apply

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/inventory"
	"github.com/quickzebra/ghostctl/pkg/metrics"
	"github.com/quickzebra/ghostctl/pkg/resource"
)

// ClusterApplier realizes the cluster-side graph nodes: opaque manifests,
// secret mappings, and pod security group bindings. Output refs carried by
// the resources are resolved against the outputs of already-realized nodes
// before the object is rendered.
type ClusterApplier struct {
	objects *ObjectApplier
	tracker *inventory.Tracker
}

// NewClusterApplier creates a cluster applier recording realized objects in
// the given tracker
func NewClusterApplier(objects *ObjectApplier, tracker *inventory.Tracker) *ClusterApplier {
	return &ClusterApplier{
		objects: objects,
		tracker: tracker,
	}
}

// Apply implements graph.Applier
func (c *ClusterApplier) Apply(ctx context.Context, node *graph.Node, out graph.Outputs) (map[string]string, error) {
	obj, err := c.render(node, out)
	if err != nil {
		return nil, err
	}

	if err := c.objects.Apply(ctx, obj, node.ApplyPolicy); err != nil {
		return nil, err
	}

	if c.tracker != nil {
		c.tracker.RecordApplied(node.ID, obj)
	}
	metrics.RecordNodeRealized(string(node.Resource.Kind()))

	return nil, nil
}

// render resolves the node's refs and builds the object to submit
func (c *ClusterApplier) render(node *graph.Node, out graph.Outputs) (*unstructured.Unstructured, error) {
	switch res := node.Resource.(type) {
	case *resource.Manifest:
		return res.Object.DeepCopy(), nil

	case *resource.SecretMapping:
		secretName, err := res.SecretRef.Resolve(out)
		if err != nil {
			return nil, fmt.Errorf("node %s: resolving secret ref: %w", node.ID, err)
		}
		return renderExternalSecret(res, secretName), nil

	case *resource.ServiceAccount:
		roleARN, err := res.RoleARN.Resolve(out)
		if err != nil {
			return nil, fmt.Errorf("node %s: resolving role ref: %w", node.ID, err)
		}
		return renderServiceAccount(res, roleARN), nil

	case *resource.PodSecurityGroupBinding:
		groupIDs := make([]string, 0, len(res.GroupIDs))
		for _, ref := range res.GroupIDs {
			id, err := ref.Resolve(out)
			if err != nil {
				return nil, fmt.Errorf("node %s: resolving group ref %s: %w", node.ID, ref, err)
			}
			groupIDs = append(groupIDs, id)
		}
		return renderSecurityGroupPolicy(res, groupIDs), nil

	default:
		return nil, fmt.Errorf("node %s: unsupported resource kind %s", node.ID, node.Resource.Kind())
	}
}
