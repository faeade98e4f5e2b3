package provision

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickzebra/ghostctl/internal/aws"
	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/resource"
)

func bindingNode() *graph.Node {
	return &graph.Node{
		ID: "external-secrets-access",
		Resource: &resource.AccessBinding{
			RoleName:                "ghost-external-secrets",
			PolicyName:              "ghost-external-secrets-read",
			OIDCProviderARN:         "arn:aws:iam::123456789012:oidc-provider/oidc.eks.eu-west-1.amazonaws.com/id/ABCDEF",
			ServiceAccountNamespace: "kube-system",
			ServiceAccountName:      "external-secrets",
			Policy: resource.PolicyDocument{
				Statements: []resource.PolicyStatement{
					{
						Effect:    "Allow",
						Actions:   []string{"secretsmanager:GetSecretValue"},
						Resources: []string{"*"},
					},
				},
			},
		},
	}
}

func TestBindingApplier_PublishesRoleARN(t *testing.T) {
	cli := aws.NewMockClient()

	var trustPolicy, policyDocument, attachedPolicyARN string
	cli.EnsureRoleFunc = func(ctx context.Context, name, policy string) (string, error) {
		assert.Equal(t, "ghost-external-secrets", name)
		trustPolicy = policy
		return "arn:aws:iam::123456789012:role/ghost-external-secrets", nil
	}
	cli.EnsurePolicyFunc = func(ctx context.Context, name, document string) (string, error) {
		assert.Equal(t, "ghost-external-secrets-read", name)
		policyDocument = document
		return "arn:aws:iam::123456789012:policy/ghost-external-secrets-read", nil
	}
	cli.AttachRolePolicyFunc = func(ctx context.Context, roleName, policyARN string) error {
		assert.Equal(t, "ghost-external-secrets", roleName)
		attachedPolicyARN = policyARN
		return nil
	}

	applier := NewBindingApplier(cli)
	outputs, err := applier.Apply(context.Background(), bindingNode(), graph.NewExecutionState(nil))
	require.NoError(t, err)

	assert.Equal(t, "arn:aws:iam::123456789012:role/ghost-external-secrets", outputs[resource.OutputRoleARN])
	assert.Equal(t, "arn:aws:iam::123456789012:policy/ghost-external-secrets-read", attachedPolicyARN)

	// Trust policy binds the role to the service account subject
	var trust map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(trustPolicy), &trust))
	statements := trust["Statement"].([]interface{})
	require.Len(t, statements, 1)
	condition := statements[0].(map[string]interface{})["Condition"].(map[string]interface{})
	equals := condition["StringEquals"].(map[string]interface{})
	assert.Equal(t, "system:serviceaccount:kube-system:external-secrets",
		equals["oidc.eks.eu-west-1.amazonaws.com/id/ABCDEF:sub"])

	// Permission policy carries the statement in the identity wire format
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(policyDocument), &doc))
	assert.Equal(t, "2012-10-17", doc["Version"])

	assert.Equal(t, []string{"EnsureRole", "EnsurePolicy", "AttachRolePolicy"}, cli.Calls)
}

func TestBindingApplier_WrongResourceRejected(t *testing.T) {
	applier := NewBindingApplier(aws.NewMockClient())
	node := &graph.Node{
		ID:       "ghost-db-sg",
		Resource: &resource.SecurityGroup{Name: "Ghost-DB-SG", VPCID: "vpc-1"},
	}

	_, err := applier.Apply(context.Background(), node, graph.NewExecutionState(nil))
	assert.Error(t, err)
}
