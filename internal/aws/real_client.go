package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// dbAvailableTimeout bounds the wait for a new database instance
const dbAvailableTimeout = 30 * time.Minute

// Client implements the collaborator interfaces on the real cloud APIs
type Client struct {
	account string
	region  string

	ec2     *ec2.Client
	eks     *eks.Client
	rds     *rds.Client
	iam     *iam.Client
	secrets *secretsmanager.Client
	cfn     *cloudformation.Client
}

// NewClient builds a Client using the ambient credential chain
func NewClient(ctx context.Context, account, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load cloud credentials: %w", err)
	}

	return &Client{
		account: account,
		region:  region,
		ec2:     ec2.NewFromConfig(cfg),
		eks:     eks.NewFromConfig(cfg),
		rds:     rds.NewFromConfig(cfg),
		iam:     iam.NewFromConfig(cfg),
		secrets: secretsmanager.NewFromConfig(cfg),
		cfn:     cloudformation.NewFromConfig(cfg),
	}, nil
}

// LookupVPC resolves a VPC by its Name tag
func (c *Client) LookupVPC(ctx context.Context, name string) (*VPCInfo, error) {
	vpcs, err := c.ec2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("tag:Name"), Values: []string{name}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe VPCs: %w", err)
	}
	if len(vpcs.Vpcs) == 0 {
		return nil, fmt.Errorf("VPC %q not found", name)
	}

	vpcID := aws.ToString(vpcs.Vpcs[0].VpcId)

	subnets, err := c.ec2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("vpc-id"), Values: []string{vpcID}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe subnets of VPC %s: %w", vpcID, err)
	}

	info := &VPCInfo{ID: vpcID}
	for _, subnet := range subnets.Subnets {
		// Subnets that do not auto-assign public addresses are private
		if !aws.ToBool(subnet.MapPublicIpOnLaunch) {
			info.PrivateSubnetIDs = append(info.PrivateSubnetIDs, aws.ToString(subnet.SubnetId))
		}
	}
	if len(info.PrivateSubnetIDs) == 0 {
		return nil, fmt.Errorf("VPC %q has no private subnets", name)
	}

	return info, nil
}

// LookupExport resolves a named CloudFormation export
func (c *Client) LookupExport(ctx context.Context, name string) (string, error) {
	var nextToken *string
	for {
		out, err := c.cfn.ListExports(ctx, &cloudformation.ListExportsInput{NextToken: nextToken})
		if err != nil {
			return "", fmt.Errorf("failed to list stack exports: %w", err)
		}
		for _, export := range out.Exports {
			if aws.ToString(export.Name) == name {
				return aws.ToString(export.Value), nil
			}
		}
		if out.NextToken == nil {
			return "", fmt.Errorf("stack export %q not found", name)
		}
		nextToken = out.NextToken
	}
}

// DescribeCluster resolves a cluster by name
func (c *Client) DescribeCluster(ctx context.Context, name string) (*ClusterInfo, error) {
	out, err := c.eks.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("failed to describe cluster %q: %w", name, err)
	}

	cluster := out.Cluster
	info := &ClusterInfo{
		Name:     aws.ToString(cluster.Name),
		Endpoint: aws.ToString(cluster.Endpoint),
	}
	if cluster.ResourcesVpcConfig != nil {
		info.ClusterSecurityGroupID = aws.ToString(cluster.ResourcesVpcConfig.ClusterSecurityGroupId)
	}
	if cluster.CertificateAuthority != nil {
		info.CertificateAuthorityData = aws.ToString(cluster.CertificateAuthority.Data)
	}

	return info, nil
}

// EnsureSecurityGroup creates the group if absent and returns its id
func (c *Client) EnsureSecurityGroup(ctx context.Context, name, description, vpcID string) (string, error) {
	existing, err := c.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("group-name"), Values: []string{name}},
			{Name: aws.String("vpc-id"), Values: []string{vpcID}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe security group %q: %w", name, err)
	}
	if len(existing.SecurityGroups) > 0 {
		return aws.ToString(existing.SecurityGroups[0].GroupId), nil
	}

	created, err := c.ec2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(name),
		Description: aws.String(description),
		VpcId:       aws.String(vpcID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create security group %q: %w", name, err)
	}

	return aws.ToString(created.GroupId), nil
}

// AuthorizeIngressFromGroup opens a port on groupID for members of sourceGroupID
func (c *Client) AuthorizeIngressFromGroup(ctx context.Context, groupID, sourceGroupID, protocol string, port int32, description string) error {
	_, err := c.ec2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId: aws.String(groupID),
		IpPermissions: []ec2types.IpPermission{
			{
				IpProtocol: aws.String(protocol),
				FromPort:   aws.Int32(port),
				ToPort:     aws.Int32(port),
				UserIdGroupPairs: []ec2types.UserIdGroupPair{
					{
						GroupId:     aws.String(sourceGroupID),
						Description: aws.String(description),
					},
				},
			},
		},
	})
	if err != nil && !IsDuplicate(err) {
		return fmt.Errorf("failed to authorize ingress on %s from %s: %w", groupID, sourceGroupID, err)
	}
	return nil
}

// EnsureDBInstance creates the instance if absent and blocks until available
func (c *Client) EnsureDBInstance(ctx context.Context, in EnsureDBInstanceInput) (*DBInstanceInfo, error) {
	existing, err := c.rds.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(in.Identifier),
	})
	if err != nil && !IsNotFound(err) {
		return nil, fmt.Errorf("failed to describe database %q: %w", in.Identifier, err)
	}

	if err != nil || len(existing.DBInstances) == 0 {
		subnetGroup, err := c.ensureDBSubnetGroup(ctx, in.Identifier, in.SubnetIDs)
		if err != nil {
			return nil, err
		}

		_, err = c.rds.CreateDBInstance(ctx, &rds.CreateDBInstanceInput{
			DBInstanceIdentifier: aws.String(in.Identifier),
			DBInstanceClass:      aws.String(in.InstanceClass),
			Engine:               aws.String(in.Engine),
			EngineVersion:        aws.String(in.EngineVersion),
			AllocatedStorage:     aws.Int32(in.AllocatedStorage),
			MultiAZ:              aws.Bool(in.MultiAZ),
			DeletionProtection:   aws.Bool(in.DeletionProtection),
			DBName:               aws.String(in.DatabaseName),
			MasterUsername:       aws.String(in.MasterUsername),
			MasterUserPassword:   aws.String(in.MasterPassword),
			Port:                 aws.Int32(in.Port),
			DBSubnetGroupName:    aws.String(subnetGroup),
			VpcSecurityGroupIds:  in.SecurityGroupIDs,
		})
		if err != nil && !IsDuplicate(err) {
			return nil, fmt.Errorf("failed to create database %q: %w", in.Identifier, err)
		}
	}

	waiter := rds.NewDBInstanceAvailableWaiter(c.rds)
	if err := waiter.Wait(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(in.Identifier),
	}, dbAvailableTimeout); err != nil {
		return nil, fmt.Errorf("database %q did not become available: %w", in.Identifier, err)
	}

	described, err := c.rds.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(in.Identifier),
	})
	if err != nil || len(described.DBInstances) == 0 {
		return nil, fmt.Errorf("failed to describe database %q after creation: %w", in.Identifier, err)
	}

	instance := described.DBInstances[0]
	info := &DBInstanceInfo{Identifier: in.Identifier}
	if instance.Endpoint != nil {
		info.Endpoint = aws.ToString(instance.Endpoint.Address)
		info.Port = aws.ToInt32(instance.Endpoint.Port)
	}

	return info, nil
}

// ensureDBSubnetGroup creates the subnet group backing an instance if absent
func (c *Client) ensureDBSubnetGroup(ctx context.Context, identifier string, subnetIDs []string) (string, error) {
	name := identifier + "-subnets"

	_, err := c.rds.DescribeDBSubnetGroups(ctx, &rds.DescribeDBSubnetGroupsInput{
		DBSubnetGroupName: aws.String(name),
	})
	if err == nil {
		return name, nil
	}
	if !IsNotFound(err) {
		return "", fmt.Errorf("failed to describe subnet group %q: %w", name, err)
	}

	_, err = c.rds.CreateDBSubnetGroup(ctx, &rds.CreateDBSubnetGroupInput{
		DBSubnetGroupName:        aws.String(name),
		DBSubnetGroupDescription: aws.String("managed by ghostctl for " + identifier),
		SubnetIds:                subnetIDs,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create subnet group %q: %w", name, err)
	}

	return name, nil
}

// GetSecret returns the secret and its payload, or nil if absent
func (c *Client) GetSecret(ctx context.Context, name string) (*SecretInfo, error) {
	out, err := c.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read secret %q: %w", name, err)
	}

	payload := map[string]string{}
	if s := aws.ToString(out.SecretString); s != "" {
		if err := json.Unmarshal([]byte(s), &payload); err != nil {
			return nil, fmt.Errorf("secret %q has a malformed payload: %w", name, err)
		}
	}

	return &SecretInfo{
		Name:    aws.ToString(out.Name),
		ARN:     aws.ToString(out.ARN),
		Payload: payload,
	}, nil
}

// CreateSecret stores a new secret with the given payload
func (c *Client) CreateSecret(ctx context.Context, name string, payload map[string]string) (*SecretInfo, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for secret %q: %w", name, err)
	}

	out, err := c.secrets.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(string(body)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create secret %q: %w", name, err)
	}

	return &SecretInfo{
		Name:    name,
		ARN:     aws.ToString(out.ARN),
		Payload: payload,
	}, nil
}

// UpdateSecret replaces the payload of an existing secret
func (c *Client) UpdateSecret(ctx context.Context, name string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for secret %q: %w", name, err)
	}

	_, err = c.secrets.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to update secret %q: %w", name, err)
	}
	return nil
}

// RandomPassword generates a password suitable for database credentials
func (c *Client) RandomPassword(ctx context.Context, length int64) (string, error) {
	out, err := c.secrets.GetRandomPassword(ctx, &secretsmanager.GetRandomPasswordInput{
		PasswordLength: aws.Int64(length),
		// Characters that trip up connection strings and the database DDL
		ExcludeCharacters: aws.String(`"@/\'`),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return aws.ToString(out.RandomPassword), nil
}

// EnsureRole creates the role with the given trust policy if absent
func (c *Client) EnsureRole(ctx context.Context, name, trustPolicy string) (string, error) {
	existing, err := c.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err == nil {
		return aws.ToString(existing.Role.Arn), nil
	}
	if !IsNotFound(err) {
		return "", fmt.Errorf("failed to look up role %q: %w", name, err)
	}

	created, err := c.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(trustPolicy),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create role %q: %w", name, err)
	}

	return aws.ToString(created.Role.Arn), nil
}

// EnsurePolicy creates the policy if absent and returns its ARN
func (c *Client) EnsurePolicy(ctx context.Context, name, document string) (string, error) {
	created, err := c.iam.CreatePolicy(ctx, &iam.CreatePolicyInput{
		PolicyName:     aws.String(name),
		PolicyDocument: aws.String(document),
	})
	if err == nil {
		return aws.ToString(created.Policy.Arn), nil
	}
	if !IsDuplicate(err) {
		return "", fmt.Errorf("failed to create policy %q: %w", name, err)
	}

	// Already present: the ARN is derivable from the account and name
	arn := fmt.Sprintf("arn:aws:iam::%s:policy/%s", c.account, name)
	existing, err := c.iam.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: aws.String(arn)})
	if err != nil {
		return "", fmt.Errorf("failed to look up policy %q: %w", name, err)
	}
	return aws.ToString(existing.Policy.Arn), nil
}

// AttachRolePolicy attaches the policy to the role
func (c *Client) AttachRolePolicy(ctx context.Context, roleName, policyARN string) error {
	_, err := c.iam.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyARN),
	})
	if err != nil && !IsDuplicate(err) {
		return fmt.Errorf("failed to attach policy %s to role %s: %w", policyARN, roleName, err)
	}
	return nil
}
