// Package inventory tracks the cluster objects realized from graph nodes so
// later runs can detect drift and prune objects whose nodes disappeared.
package inventory

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Item represents one tracked cluster object
type Item struct {
	// ID is the graph node the object was realized from
	ID string `json:"id"`

	// GVK is the GroupVersionKind of the object
	GVK schema.GroupVersionKind `json:"gvk"`

	// Namespace of the object (empty for cluster-scoped)
	Namespace string `json:"namespace,omitempty"`

	// Name of the object
	Name string `json:"name"`

	// Hash is the content hash of the object spec, used for drift detection
	Hash string `json:"hash"`

	// Status tracks the current state of the object
	Status ItemStatus `json:"status"`
}

// ItemStatus represents the status of an inventory item
type ItemStatus string

const (
	// ItemStatusApplied means the object was successfully applied
	ItemStatusApplied ItemStatus = "Applied"

	// ItemStatusOrphaned means the object's node is no longer in the graph
	ItemStatusOrphaned ItemStatus = "Orphaned"

	// ItemStatusPruned means the object was deleted
	ItemStatusPruned ItemStatus = "Pruned"
)

// Tracker manages the inventory of realized cluster objects
type Tracker struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		items: make(map[string]Item),
	}
}

// RecordApplied records that the node's object was successfully applied
func (t *Tracker) RecordApplied(nodeID string, obj *unstructured.Unstructured) Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	item := Item{
		ID:        nodeID,
		GVK:       obj.GroupVersionKind(),
		Namespace: obj.GetNamespace(),
		Name:      obj.GetName(),
		Hash:      ComputeHash(obj),
		Status:    ItemStatusApplied,
	}

	t.items[nodeID] = item
	return item
}

// RecordPruned marks the node's object as deleted
func (t *Tracker) RecordPruned(nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if item, ok := t.items[nodeID]; ok {
		item.Status = ItemStatusPruned
		t.items[nodeID] = item
	}
}

// Remove drops an item from the inventory
func (t *Tracker) Remove(nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.items, nodeID)
}

// Get returns an inventory item by node ID
func (t *Tracker) Get(nodeID string) (Item, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	item, ok := t.items[nodeID]
	return item, ok
}

// GetAll returns all inventory items sorted by node ID
func (t *Tracker) GetAll() []Item {
	t.mu.RLock()
	defer t.mu.RUnlock()

	items := make([]Item, 0, len(t.items))
	for _, item := range t.items {
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})

	return items
}

// FindOrphaned identifies objects whose node is no longer in the graph
func (t *Tracker) FindOrphaned(currentNodeIDs map[string]bool) []Item {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var orphaned []Item
	for id, item := range t.items {
		if item.Status == ItemStatusPruned {
			continue
		}
		if !currentNodeIDs[id] {
			item.Status = ItemStatusOrphaned
			orphaned = append(orphaned, item)
		}
	}

	sort.Slice(orphaned, func(i, j int) bool {
		return orphaned[i].ID < orphaned[j].ID
	})

	return orphaned
}

// Size returns the number of tracked items
func (t *Tracker) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Serialize serializes the inventory to JSON
func (t *Tracker) Serialize() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return json.Marshal(t.items)
}

// Deserialize replaces the inventory with the serialized state
func (t *Tracker) Deserialize(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	items := make(map[string]Item)
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to deserialize inventory: %w", err)
	}

	t.items = items
	return nil
}

// ComputeHash computes a content hash for an unstructured object, ignoring
// the fields the cluster rewrites on every update
func ComputeHash(obj *unstructured.Unstructured) string {
	if obj == nil {
		return ""
	}

	objCopy := obj.DeepCopy()
	unstructured.RemoveNestedField(objCopy.Object, "metadata", "resourceVersion")
	unstructured.RemoveNestedField(objCopy.Object, "metadata", "generation")
	unstructured.RemoveNestedField(objCopy.Object, "metadata", "uid")
	unstructured.RemoveNestedField(objCopy.Object, "metadata", "creationTimestamp")
	unstructured.RemoveNestedField(objCopy.Object, "metadata", "managedFields")
	unstructured.RemoveNestedField(objCopy.Object, "status")

	data, err := json.Marshal(objCopy.Object)
	if err != nil {
		return ""
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:8])
}
