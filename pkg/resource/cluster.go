package resource

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/quickzebra/ghostctl/pkg/graph"
)

// HelmChart describes a chart release inside the cluster
type HelmChart struct {
	// Repository is the chart repository URL
	Repository string `json:"repository"`

	// Chart is the chart name within the repository
	Chart string `json:"chart"`

	// Version pins the chart version
	Version string `json:"version"`

	// Release is the release name
	Release string `json:"release"`

	// Namespace is the target namespace
	Namespace string `json:"namespace"`

	// Values are the install values
	Values map[string]interface{} `json:"values,omitempty"`
}

// Kind returns the resource kind
func (hc *HelmChart) Kind() graph.ResourceKind { return KindHelmChart }

// Validate checks the internal consistency of the description
func (hc *HelmChart) Validate() error {
	if hc.Repository == "" {
		return fmt.Errorf("repository is required")
	}
	if hc.Chart == "" {
		return fmt.Errorf("chart is required")
	}
	if hc.Release == "" {
		return fmt.Errorf("release is required")
	}
	if hc.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	return nil
}

// API versions of the in-cluster CRDs backing the typed cluster resources
const (
	// ExternalSecretAPIVersion is the CRD group/version of the secret sync object
	ExternalSecretAPIVersion = "kubernetes-client.io/v1"

	// SecurityGroupPolicyAPIVersion is the CRD group/version of the pod
	// security group binding object
	SecurityGroupPolicyAPIVersion = "vpcresources.k8s.aws/v1beta1"
)

// FieldMapping maps one property of the cloud secret into a key of the
// cluster-local secret
type FieldMapping struct {
	// Name is the key in the cluster secret
	Name string `json:"name"`

	// Property is the field in the cloud secret payload
	Property string `json:"property"`
}

// SecretMapping describes a cluster object that syncs fields of a cloud
// secret into a cluster-local secret
type SecretMapping struct {
	// Name is the name of the synced cluster secret
	Name string `json:"name"`

	// Namespace is the target namespace
	Namespace string `json:"namespace"`

	// SecretRef identifies the cloud secret, usually an output of the
	// database node
	SecretRef graph.Ref `json:"secretRef"`

	// Fields are the mapped fields
	Fields []FieldMapping `json:"fields"`
}

// Kind returns the resource kind
func (sm *SecretMapping) Kind() graph.ResourceKind { return KindSecretMapping }

// Validate checks the internal consistency of the description
func (sm *SecretMapping) Validate() error {
	if sm.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sm.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if err := sm.SecretRef.Validate(); err != nil {
		return fmt.Errorf("secretRef: %w", err)
	}
	if len(sm.Fields) == 0 {
		return fmt.Errorf("at least one field mapping is required")
	}
	for i, f := range sm.Fields {
		if f.Name == "" || f.Property == "" {
			return fmt.Errorf("fields[%d]: name and property are required", i)
		}
	}
	return nil
}

// Refs returns the cross-node references the mapping carries
func (sm *SecretMapping) Refs() []graph.Ref {
	return []graph.Ref{sm.SecretRef}
}

// PodSecurityGroupBinding describes a cluster policy binding security groups
// to pods matching a label selector
type PodSecurityGroupBinding struct {
	// Name is the policy object name
	Name string `json:"name"`

	// Namespace is the target namespace
	Namespace string `json:"namespace"`

	// PodSelector matches the pods the groups are bound to
	PodSelector map[string]string `json:"podSelector"`

	// GroupIDs are the security groups to bind
	GroupIDs []graph.Ref `json:"groupIds"`
}

// Kind returns the resource kind
func (pb *PodSecurityGroupBinding) Kind() graph.ResourceKind { return KindPodSecurityGroupBinding }

// Validate checks the internal consistency of the description
func (pb *PodSecurityGroupBinding) Validate() error {
	if pb.Name == "" {
		return fmt.Errorf("name is required")
	}
	if pb.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if len(pb.PodSelector) == 0 {
		return fmt.Errorf("podSelector must not be empty")
	}
	if len(pb.GroupIDs) == 0 {
		return fmt.Errorf("at least one security group is required")
	}
	for i, ref := range pb.GroupIDs {
		if err := ref.Validate(); err != nil {
			return fmt.Errorf("groupIds[%d]: %w", i, err)
		}
	}
	return nil
}

// Refs returns the cross-node references the binding carries
func (pb *PodSecurityGroupBinding) Refs() []graph.Ref {
	return pb.GroupIDs
}

// RoleAnnotation is the service account annotation binding it to an
// identity role
const RoleAnnotation = "eks.amazonaws.com/role-arn"

// ServiceAccount describes a cluster service account annotated with the ARN
// of an identity role, usually an output of an access-binding node
type ServiceAccount struct {
	// Name is the service account name
	Name string `json:"name"`

	// Namespace is the target namespace
	Namespace string `json:"namespace"`

	// RoleARN is the identity role the account assumes
	RoleARN graph.Ref `json:"roleArn"`
}

// Kind returns the resource kind
func (sa *ServiceAccount) Kind() graph.ResourceKind { return KindServiceAccount }

// Validate checks the internal consistency of the description
func (sa *ServiceAccount) Validate() error {
	if sa.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sa.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if err := sa.RoleARN.Validate(); err != nil {
		return fmt.Errorf("roleArn: %w", err)
	}
	return nil
}

// Refs returns the cross-node references the service account carries
func (sa *ServiceAccount) Refs() []graph.Ref {
	return []graph.Ref{sa.RoleARN}
}

// Manifest is an opaque declarative payload submitted to the cluster as-is
type Manifest struct {
	// Object is the payload body
	Object unstructured.Unstructured `json:"object"`
}

// Kind returns the resource kind
func (m *Manifest) Kind() graph.ResourceKind { return KindManifest }

// Validate checks the payload carries the fields the cluster requires
func (m *Manifest) Validate() error {
	if m.Object.GetAPIVersion() == "" {
		return fmt.Errorf("object apiVersion is required")
	}
	if m.Object.GetKind() == "" {
		return fmt.Errorf("object kind is required")
	}
	if m.Object.GetName() == "" {
		return fmt.Errorf("object name is required")
	}
	return nil
}
