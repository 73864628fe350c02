package modules

import (
	"projectpulse.io/pulse/internal/api/handlers"
	"projectpulse.io/pulse/internal/api/middleware"
	"projectpulse.io/pulse/internal/config"
)

// NewJWTConfig derives the token settings from cfg.
func NewJWTConfig(cfg *config.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey: []byte(cfg.Security.JWTSigningKey),
		Issuer:     cfg.Security.JWTIssuer,
		ExpiresIn:  cfg.Security.TokenTTL,
	}
}

// NewServerDeps builds base server deps then lets each module contribute explicit wiring.
func NewServerDeps(cfg *config.Config, infra *Infrastructure, mods []Module) handlers.ServerDeps {
	deps := handlers.ServerDeps{
		Users:  infra.Store,
		Health: infra.Store,
		JWTCfg: NewJWTConfig(cfg),
		Audit:  infra.AuditLogger,
		Pools:  infra.Pools,
	}
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		contributor, ok := mod.(ServerDepsContributor)
		if !ok {
			continue
		}
		contributor.ContributeServerDeps(&deps)
	}
	return deps
}
