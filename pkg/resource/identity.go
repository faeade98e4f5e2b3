package resource

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quickzebra/ghostctl/pkg/graph"
)

// PolicyStatement is one statement of an identity policy document
type PolicyStatement struct {
	// Effect is Allow or Deny
	Effect string `json:"effect"`

	// Actions lists the permitted API actions
	Actions []string `json:"actions"`

	// Resources lists the resources the statement applies to
	Resources []string `json:"resources"`
}

// PolicyDocument is a minimal identity policy document
type PolicyDocument struct {
	Statements []PolicyStatement `json:"statements"`
}

// MarshalIAM renders the document in the wire format the identity service
// expects
func (pd PolicyDocument) MarshalIAM() (string, error) {
	type iamStatement struct {
		Effect   string   `json:"Effect"`
		Action   []string `json:"Action"`
		Resource []string `json:"Resource"`
	}
	doc := struct {
		Version   string         `json:"Version"`
		Statement []iamStatement `json:"Statement"`
	}{Version: "2012-10-17"}

	for _, s := range pd.Statements {
		doc.Statement = append(doc.Statement, iamStatement{
			Effect:   s.Effect,
			Action:   s.Actions,
			Resource: s.Resources,
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal policy document: %w", err)
	}
	return string(data), nil
}

// AccessBinding describes a workload identity: a role assumable by a cluster
// service account through the cluster's OIDC provider, with an attached
// policy. The applier publishes the role ARN as an output.
type AccessBinding struct {
	// RoleName is the identity role name
	RoleName string `json:"roleName"`

	// PolicyName is the attached policy name
	PolicyName string `json:"policyName"`

	// OIDCProviderARN is the cluster's identity provider
	OIDCProviderARN string `json:"oidcProviderArn"`

	// ServiceAccountNamespace is the namespace of the bound service account
	ServiceAccountNamespace string `json:"serviceAccountNamespace"`

	// ServiceAccountName is the name of the bound service account
	ServiceAccountName string `json:"serviceAccountName"`

	// Policy is the permission statement attached to the role
	Policy PolicyDocument `json:"policy"`
}

// Kind returns the resource kind
func (ab *AccessBinding) Kind() graph.ResourceKind { return KindAccessBinding }

// Validate checks the internal consistency of the description
func (ab *AccessBinding) Validate() error {
	if ab.RoleName == "" {
		return fmt.Errorf("roleName is required")
	}
	if ab.PolicyName == "" {
		return fmt.Errorf("policyName is required")
	}
	if ab.OIDCProviderARN == "" {
		return fmt.Errorf("oidcProviderArn is required")
	}
	if ab.ServiceAccountNamespace == "" || ab.ServiceAccountName == "" {
		return fmt.Errorf("service account namespace and name are required")
	}
	if len(ab.Policy.Statements) == 0 {
		return fmt.Errorf("policy must contain at least one statement")
	}
	for i, s := range ab.Policy.Statements {
		if s.Effect != "Allow" && s.Effect != "Deny" {
			return fmt.Errorf("policy statement %d: effect must be Allow or Deny, got %q", i, s.Effect)
		}
		if len(s.Actions) == 0 {
			return fmt.Errorf("policy statement %d: at least one action is required", i)
		}
		if len(s.Resources) == 0 {
			return fmt.Errorf("policy statement %d: at least one resource is required", i)
		}
	}
	return nil
}

// OIDCProviderURL derives the issuer host path from the provider ARN, as
// used in the web identity trust condition keys
func (ab *AccessBinding) OIDCProviderURL() string {
	// arn:aws:iam::<account>:oidc-provider/<issuer> -> <issuer>
	if idx := strings.Index(ab.OIDCProviderARN, "oidc-provider/"); idx >= 0 {
		return ab.OIDCProviderARN[idx+len("oidc-provider/"):]
	}
	return ab.OIDCProviderARN
}

// TrustPolicy renders the web identity trust document binding the role to
// the service account subject
func (ab *AccessBinding) TrustPolicy() (string, error) {
	issuer := ab.OIDCProviderURL()
	doc := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": map[string]string{"Federated": ab.OIDCProviderARN},
				"Action":    "sts:AssumeRoleWithWebIdentity",
				"Condition": map[string]interface{}{
					"StringEquals": map[string]string{
						issuer + ":sub": fmt.Sprintf("system:serviceaccount:%s:%s", ab.ServiceAccountNamespace, ab.ServiceAccountName),
						issuer + ":aud": "sts.amazonaws.com",
					},
				},
			},
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal trust policy: %w", err)
	}
	return string(data), nil
}
