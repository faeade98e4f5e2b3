package provision

import (
	"context"
	"fmt"
	"strconv"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/quickzebra/ghostctl/internal/aws"
	"github.com/quickzebra/ghostctl/pkg/graph"
	"github.com/quickzebra/ghostctl/pkg/resource"
)

// generatedPasswordLength is the length of generated master passwords
const generatedPasswordLength = 32

// Credential payload keys, matching the field mappings consumed by the
// secret-mapping node
const (
	payloadKeyUsername = "username"
	payloadKeyPassword = "password"
	payloadKeyHost     = "host"
	payloadKeyPort     = "port"
	payloadKeyDBName   = "dbname"
)

// DatabaseApplier realizes database nodes. The master password is generated
// on first apply and stored in the secrets manager under
// <instance-identifier>-credentials; reruns reuse the stored password so the
// instance converges instead of diverging from its secret.
type DatabaseApplier struct {
	databases aws.DatabaseAPI
	secrets   aws.SecretsAPI
}

// NewDatabaseApplier creates a database applier
func NewDatabaseApplier(databases aws.DatabaseAPI, secrets aws.SecretsAPI) *DatabaseApplier {
	return &DatabaseApplier{
		databases: databases,
		secrets:   secrets,
	}
}

// SecretNameFor returns the credentials secret name for an instance
func SecretNameFor(instanceIdentifier string) string {
	return instanceIdentifier + "-credentials"
}

// Apply implements graph.Applier
func (a *DatabaseApplier) Apply(ctx context.Context, node *graph.Node, out graph.Outputs) (map[string]string, error) {
	db, ok := node.Resource.(*resource.Database)
	if !ok {
		return nil, fmt.Errorf("node %s: resource is not a database", node.ID)
	}

	logger := log.FromContext(ctx).WithValues("instance", db.InstanceIdentifier)

	groupIDs := make([]string, 0, len(db.SecurityGroupIDs))
	for _, ref := range db.SecurityGroupIDs {
		id, err := ref.Resolve(out)
		if err != nil {
			return nil, fmt.Errorf("node %s: resolving group ref %s: %w", node.ID, ref, err)
		}
		groupIDs = append(groupIDs, id)
	}

	secretName := SecretNameFor(db.InstanceIdentifier)
	password, secretARN, err := a.ensureCredentials(ctx, secretName, db.MasterUsername)
	if err != nil {
		return nil, err
	}

	logger.V(1).Info("Converging database instance", "class", db.InstanceClass, "engine", db.Engine)

	info, err := a.databases.EnsureDBInstance(ctx, aws.EnsureDBInstanceInput{
		Identifier:         db.InstanceIdentifier,
		Engine:             db.Engine,
		EngineVersion:      db.EngineVersion,
		InstanceClass:      db.InstanceClass,
		AllocatedStorage:   db.AllocatedStorage,
		MultiAZ:            db.MultiAZ,
		DeletionProtection: db.DeletionProtection,
		DatabaseName:       db.DatabaseName,
		MasterUsername:     db.MasterUsername,
		MasterPassword:     password,
		Port:               db.Port,
		SubnetIDs:          db.SubnetIDs,
		SecurityGroupIDs:   groupIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure database instance %s: %w", db.InstanceIdentifier, err)
	}

	// Complete the payload with connection details once the endpoint is known
	payload := map[string]string{
		payloadKeyUsername: db.MasterUsername,
		payloadKeyPassword: password,
		payloadKeyHost:     info.Endpoint,
		payloadKeyPort:     strconv.Itoa(int(info.Port)),
		payloadKeyDBName:   db.DatabaseName,
	}
	if err := a.secrets.UpdateSecret(ctx, secretName, payload); err != nil {
		return nil, fmt.Errorf("failed to update credentials secret %s: %w", secretName, err)
	}

	logger.V(1).Info("Database instance available", "endpoint", info.Endpoint)

	return map[string]string{
		resource.OutputSecretName: secretName,
		resource.OutputSecretARN:  secretARN,
		resource.OutputEndpoint:   info.Endpoint,
	}, nil
}

// ensureCredentials returns the stored master password, generating and
// storing a fresh one when the secret does not exist yet
func (a *DatabaseApplier) ensureCredentials(ctx context.Context, secretName, username string) (password, arn string, err error) {
	existing, err := a.secrets.GetSecret(ctx, secretName)
	if err != nil && !aws.IsNotFound(err) {
		return "", "", fmt.Errorf("failed to read credentials secret %s: %w", secretName, err)
	}
	if existing != nil {
		if pw, ok := existing.Payload[payloadKeyPassword]; ok && pw != "" {
			return pw, existing.ARN, nil
		}
	}

	generated, err := a.secrets.RandomPassword(ctx, generatedPasswordLength)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate master password: %w", err)
	}

	created, err := a.secrets.CreateSecret(ctx, secretName, map[string]string{
		payloadKeyUsername: username,
		payloadKeyPassword: generated,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to create credentials secret %s: %w", secretName, err)
	}

	return generated, created.ARN, nil
}
