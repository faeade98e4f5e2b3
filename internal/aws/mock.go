package aws

import (
	"context"
	"fmt"
)

// MockClient is a scriptable implementation of the collaborator interfaces
// for tests. Unset functions fall back to a permissive in-memory behavior so
// most tests only script the calls they care about.
type MockClient struct {
	LookupVPCFunc                 func(ctx context.Context, name string) (*VPCInfo, error)
	LookupExportFunc              func(ctx context.Context, name string) (string, error)
	DescribeClusterFunc           func(ctx context.Context, name string) (*ClusterInfo, error)
	EnsureSecurityGroupFunc       func(ctx context.Context, name, description, vpcID string) (string, error)
	AuthorizeIngressFromGroupFunc func(ctx context.Context, groupID, sourceGroupID, protocol string, port int32, description string) error
	EnsureDBInstanceFunc          func(ctx context.Context, in EnsureDBInstanceInput) (*DBInstanceInfo, error)
	GetSecretFunc                 func(ctx context.Context, name string) (*SecretInfo, error)
	CreateSecretFunc              func(ctx context.Context, name string, payload map[string]string) (*SecretInfo, error)
	UpdateSecretFunc              func(ctx context.Context, name string, payload map[string]string) error
	RandomPasswordFunc            func(ctx context.Context, length int64) (string, error)
	EnsureRoleFunc                func(ctx context.Context, name, trustPolicy string) (string, error)
	EnsurePolicyFunc              func(ctx context.Context, name, document string) (string, error)
	AttachRolePolicyFunc          func(ctx context.Context, roleName, policyARN string) error

	// Calls records every invocation by method name for assertions
	Calls []string

	// secrets backs the default secret behavior
	secrets map[string]*SecretInfo

	// groups backs the default security group behavior, name -> id
	groups map[string]string
}

// NewMockClient returns a MockClient with empty in-memory state
func NewMockClient() *MockClient {
	return &MockClient{
		secrets: make(map[string]*SecretInfo),
		groups:  make(map[string]string),
	}
}

func (m *MockClient) record(call string) {
	m.Calls = append(m.Calls, call)
}

// CallCount returns how many times the named method was invoked
func (m *MockClient) CallCount(call string) int {
	n := 0
	for _, c := range m.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// LookupVPC implements NetworkAPI
func (m *MockClient) LookupVPC(ctx context.Context, name string) (*VPCInfo, error) {
	m.record("LookupVPC")
	if m.LookupVPCFunc != nil {
		return m.LookupVPCFunc(ctx, name)
	}
	return &VPCInfo{
		ID:               "vpc-0mock",
		PrivateSubnetIDs: []string{"subnet-0mocka", "subnet-0mockb"},
	}, nil
}

// LookupExport implements ExportsAPI
func (m *MockClient) LookupExport(ctx context.Context, name string) (string, error) {
	m.record("LookupExport")
	if m.LookupExportFunc != nil {
		return m.LookupExportFunc(ctx, name)
	}
	return "mock-" + name, nil
}

// DescribeCluster implements ClusterAPI
func (m *MockClient) DescribeCluster(ctx context.Context, name string) (*ClusterInfo, error) {
	m.record("DescribeCluster")
	if m.DescribeClusterFunc != nil {
		return m.DescribeClusterFunc(ctx, name)
	}
	return &ClusterInfo{
		Name:                   name,
		ClusterSecurityGroupID: "sg-0cluster",
		Endpoint:               "https://mock.eks.example.com",
	}, nil
}

// EnsureSecurityGroup implements SecurityGroupAPI
func (m *MockClient) EnsureSecurityGroup(ctx context.Context, name, description, vpcID string) (string, error) {
	m.record("EnsureSecurityGroup")
	if m.EnsureSecurityGroupFunc != nil {
		return m.EnsureSecurityGroupFunc(ctx, name, description, vpcID)
	}
	if id, found := m.groups[name]; found {
		return id, nil
	}
	id := fmt.Sprintf("sg-%08d", len(m.groups)+1)
	m.groups[name] = id
	return id, nil
}

// AuthorizeIngressFromGroup implements SecurityGroupAPI
func (m *MockClient) AuthorizeIngressFromGroup(ctx context.Context, groupID, sourceGroupID, protocol string, port int32, description string) error {
	m.record("AuthorizeIngressFromGroup")
	if m.AuthorizeIngressFromGroupFunc != nil {
		return m.AuthorizeIngressFromGroupFunc(ctx, groupID, sourceGroupID, protocol, port, description)
	}
	return nil
}

// EnsureDBInstance implements DatabaseAPI
func (m *MockClient) EnsureDBInstance(ctx context.Context, in EnsureDBInstanceInput) (*DBInstanceInfo, error) {
	m.record("EnsureDBInstance")
	if m.EnsureDBInstanceFunc != nil {
		return m.EnsureDBInstanceFunc(ctx, in)
	}
	return &DBInstanceInfo{
		Identifier: in.Identifier,
		Endpoint:   in.Identifier + ".mock.rds.example.com",
		Port:       in.Port,
	}, nil
}

// GetSecret implements SecretsAPI
func (m *MockClient) GetSecret(ctx context.Context, name string) (*SecretInfo, error) {
	m.record("GetSecret")
	if m.GetSecretFunc != nil {
		return m.GetSecretFunc(ctx, name)
	}
	return m.secrets[name], nil
}

// CreateSecret implements SecretsAPI
func (m *MockClient) CreateSecret(ctx context.Context, name string, payload map[string]string) (*SecretInfo, error) {
	m.record("CreateSecret")
	if m.CreateSecretFunc != nil {
		return m.CreateSecretFunc(ctx, name, payload)
	}
	info := &SecretInfo{
		Name:    name,
		ARN:     "arn:aws:secretsmanager:mock:000000000000:secret:" + name,
		Payload: payload,
	}
	m.secrets[name] = info
	return info, nil
}

// UpdateSecret implements SecretsAPI
func (m *MockClient) UpdateSecret(ctx context.Context, name string, payload map[string]string) error {
	m.record("UpdateSecret")
	if m.UpdateSecretFunc != nil {
		return m.UpdateSecretFunc(ctx, name, payload)
	}
	info, found := m.secrets[name]
	if !found {
		return fmt.Errorf("secret %q not found", name)
	}
	info.Payload = payload
	return nil
}

// RandomPassword implements SecretsAPI
func (m *MockClient) RandomPassword(ctx context.Context, length int64) (string, error) {
	m.record("RandomPassword")
	if m.RandomPasswordFunc != nil {
		return m.RandomPasswordFunc(ctx, length)
	}
	return "mock-generated-password", nil
}

// EnsureRole implements IdentityAPI
func (m *MockClient) EnsureRole(ctx context.Context, name, trustPolicy string) (string, error) {
	m.record("EnsureRole")
	if m.EnsureRoleFunc != nil {
		return m.EnsureRoleFunc(ctx, name, trustPolicy)
	}
	return "arn:aws:iam::000000000000:role/" + name, nil
}

// EnsurePolicy implements IdentityAPI
func (m *MockClient) EnsurePolicy(ctx context.Context, name, document string) (string, error) {
	m.record("EnsurePolicy")
	if m.EnsurePolicyFunc != nil {
		return m.EnsurePolicyFunc(ctx, name, document)
	}
	return "arn:aws:iam::000000000000:policy/" + name, nil
}

// AttachRolePolicy implements IdentityAPI
func (m *MockClient) AttachRolePolicy(ctx context.Context, roleName, policyARN string) error {
	m.record("AttachRolePolicy")
	if m.AttachRolePolicyFunc != nil {
		return m.AttachRolePolicyFunc(ctx, roleName, policyARN)
	}
	return nil
}
