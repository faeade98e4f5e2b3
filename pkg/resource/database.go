package resource

import (
	"fmt"

	"github.com/quickzebra/ghostctl/pkg/graph"
)

// Database describes a managed relational database instance. The master
// password is generated at apply time and stored in the cloud secrets
// manager; the applier publishes the secret name, ARN and endpoint as
// outputs.
type Database struct {
	// InstanceIdentifier is the instance identifier, unique per account/region
	InstanceIdentifier string `json:"instanceIdentifier"`

	// Engine is the database engine, e.g. mysql
	Engine string `json:"engine"`

	// EngineVersion is the exact engine version to provision
	EngineVersion string `json:"engineVersion"`

	// InstanceClass is the compute class, e.g. db.t3.micro
	InstanceClass string `json:"instanceClass"`

	// AllocatedStorage is the storage size in GiB
	AllocatedStorage int32 `json:"allocatedStorage"`

	// MultiAZ enables a standby replica in a second availability zone
	MultiAZ bool `json:"multiAZ,omitempty"`

	// DeletionProtection blocks instance deletion while set
	DeletionProtection bool `json:"deletionProtection,omitempty"`

	// DatabaseName is the initial database created on the instance
	DatabaseName string `json:"databaseName"`

	// MasterUsername is the admin user; the password is generated
	MasterUsername string `json:"masterUsername"`

	// Port is the listener port
	Port int32 `json:"port"`

	// SubnetIDs places the instance in the given subnets
	SubnetIDs []string `json:"subnetIds"`

	// SecurityGroupIDs attaches the instance to the given security groups
	SecurityGroupIDs []graph.Ref `json:"securityGroupIds"`
}

// Kind returns the resource kind
func (db *Database) Kind() graph.ResourceKind { return KindDatabase }

// Validate checks the internal consistency of the description
func (db *Database) Validate() error {
	if db.InstanceIdentifier == "" {
		return fmt.Errorf("instanceIdentifier is required")
	}
	if db.Engine == "" {
		return fmt.Errorf("engine is required")
	}
	if db.EngineVersion == "" {
		return fmt.Errorf("engineVersion is required")
	}
	if db.InstanceClass == "" {
		return fmt.Errorf("instanceClass is required")
	}
	if db.AllocatedStorage < 1 {
		return fmt.Errorf("allocatedStorage must be positive, got %d", db.AllocatedStorage)
	}
	if db.DatabaseName == "" {
		return fmt.Errorf("databaseName is required")
	}
	if db.MasterUsername == "" {
		return fmt.Errorf("masterUsername is required")
	}
	if db.Port < 1 || db.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", db.Port)
	}
	if len(db.SubnetIDs) == 0 {
		return fmt.Errorf("at least one subnet is required")
	}
	if len(db.SecurityGroupIDs) == 0 {
		return fmt.Errorf("at least one security group is required")
	}
	for i, ref := range db.SecurityGroupIDs {
		if err := ref.Validate(); err != nil {
			return fmt.Errorf("securityGroupIds[%d]: %w", i, err)
		}
	}
	return nil
}

// Refs returns the cross-node references the database carries
func (db *Database) Refs() []graph.Ref {
	return db.SecurityGroupIDs
}
