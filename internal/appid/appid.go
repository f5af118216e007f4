package appid

import (
	"context"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/yukyu/yukyu/internal/assets/appidentity"
)

// Fallback names used when no identity can be loaded.
const (
	DefaultBinaryName  = "yukyu"
	DefaultConfigName  = "yukyu"
	DefaultEnvPrefix   = "YUKYU_"
	DefaultDescription = "Paid-leave dashboard client"
)

func init() {
	// Explicit identity overrides (FULMEN_APP_IDENTITY_PATH, a repo-local
	// .fulmen/app.yaml) still win over the embedded copy.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// Resolve returns the loaded identity, or one built from the defaults when
// loading fails. The error is returned alongside so callers can log it.
func Resolve(ctx context.Context) (*appidentity.Identity, error) {
	identity, err := Get(ctx)
	if err == nil && identity != nil {
		return withDefaults(identity), nil
	}
	return &appidentity.Identity{
		BinaryName:  DefaultBinaryName,
		ConfigName:  DefaultConfigName,
		EnvPrefix:   DefaultEnvPrefix,
		Description: DefaultDescription,
	}, err
}

func withDefaults(identity *appidentity.Identity) *appidentity.Identity {
	resolved := *identity
	if resolved.BinaryName == "" {
		resolved.BinaryName = DefaultBinaryName
	}
	if resolved.ConfigName == "" {
		resolved.ConfigName = resolved.BinaryName
	}
	if resolved.EnvPrefix == "" {
		resolved.EnvPrefix = DefaultEnvPrefix
	}
	return &resolved
}
