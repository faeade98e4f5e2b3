// Package config resolves the run configuration once at process start.
// The resolved Config is passed by value into the graph builder; nothing in
// this package is consulted again after startup.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Context keys recognized on the command line
const (
	// KeyDeployExternalSecrets toggles the secret-sync feature
	KeyDeployExternalSecrets = "deploy_external_secrets"

	// KeyDeploySGP toggles pod-level security group enforcement
	KeyDeploySGP = "deploy_sgp"

	// KeyAccount overrides the target account
	KeyAccount = "account"

	// KeyRegion overrides the target region
	KeyRegion = "region"

	// KeyVPCName overrides the looked-up VPC name
	KeyVPCName = "vpc_name"
)

// Environment fallbacks for account and region
const (
	EnvDeployAccount  = "GHOSTCTL_DEPLOY_ACCOUNT"
	EnvDefaultAccount = "AWS_ACCOUNT_ID"
	EnvDeployRegion   = "GHOSTCTL_DEPLOY_REGION"
	EnvDefaultRegion  = "AWS_REGION"
)

// DefaultVPCName is the name of the VPC created by the cluster quickstart
const DefaultVPCName = "EKSClusterStack/VPC"

// Context is the string key/value configuration passed with --context.
// Feature values are string-typed booleans: exactly "True" enables a
// feature, anything else disables it.
type Context map[string]string

// ParseContext parses repeated key=value pairs into a Context
func ParseContext(pairs []string) (Context, error) {
	ctx := make(Context, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("malformed context entry %q, expected key=value", pair)
		}
		ctx[key] = value
	}
	return ctx, nil
}

// Bool reports whether the key holds the literal "True"
func (c Context) Bool(key string) bool {
	return c[key] == "True"
}

// Config is the resolved run configuration
type Config struct {
	// Account is the target cloud account
	Account string

	// Region is the target cloud region
	Region string

	// DeployExternalSecrets provisions the secret-sync feature
	DeployExternalSecrets bool

	// DeploySGP uses pod-level security groups instead of the coarse
	// cluster-level rule
	DeploySGP bool

	// VPCName is the name of the pre-existing VPC to look up
	VPCName string

	// ManifestDir is the directory holding the static payload documents
	ManifestDir string

	// Kubeconfig is the path to the cluster credentials
	Kubeconfig string

	// DryRun previews apply operations without mutating anything
	DryRun bool

	// Prune deletes cluster objects no longer present in the graph
	Prune bool
}

// Resolve builds a Config from the context map and the process environment.
// Account and region resolve context value first, then the deploy-specific
// environment variable, then the ambient default; if all are absent the run
// aborts before any resource graph is built.
func Resolve(ctx Context) (Config, error) {
	cfg := Config{
		DeployExternalSecrets: ctx.Bool(KeyDeployExternalSecrets),
		DeploySGP:             ctx.Bool(KeyDeploySGP),
		VPCName:               DefaultVPCName,
	}

	if name := strings.TrimSpace(ctx[KeyVPCName]); name != "" {
		cfg.VPCName = name
	}

	account, err := resolveValue(ctx[KeyAccount], EnvDeployAccount, EnvDefaultAccount)
	if err != nil {
		return Config{}, fmt.Errorf("account: %w", err)
	}
	cfg.Account = account

	region, err := resolveValue(ctx[KeyRegion], EnvDeployRegion, EnvDefaultRegion)
	if err != nil {
		return Config{}, fmt.Errorf("region: %w", err)
	}
	cfg.Region = region

	return cfg, nil
}

// resolveValue implements the context -> deploy env -> default env chain
func resolveValue(contextValue, deployEnv, defaultEnv string) (string, error) {
	if v := strings.TrimSpace(contextValue); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(os.Getenv(deployEnv)); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(os.Getenv(defaultEnv)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("not set in context, %s or %s", deployEnv, defaultEnv)
}
