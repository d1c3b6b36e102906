package server

import "time"

type SeedUser struct {
	UID      string
	Email    string
	Password string
	// TenantRoles maps tenant id -> role name, granted at startup.
	TenantRoles map[string]string
	TOTPSecret  string
}

type Config struct {
	// MongoURI is optional; when empty, in-memory stores back everything
	// (dev mode).
	MongoURI              string
	MongoDB               string
	UsersCollection       string
	MembershipsCollection string
	RecordsCollection     string

	JWTIssuer string
	TokenTTL  time.Duration

	// SecretEnvPrefix is prepended to the upper-cased domain name when
	// resolving key material from the environment.
	SecretEnvPrefix string

	AuditQueueDepth int

	SeedUsers []SeedUser
}

func (c *Config) setDefaults() {
	if c.MongoDB == "" {
		c.MongoDB = "fieldguard"
	}
	if c.UsersCollection == "" {
		c.UsersCollection = "users"
	}
	if c.MembershipsCollection == "" {
		c.MembershipsCollection = "memberships"
	}
	if c.RecordsCollection == "" {
		c.RecordsCollection = "records"
	}
	if c.JWTIssuer == "" {
		c.JWTIssuer = "fieldguard"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 15 * time.Minute
	}
	if c.SecretEnvPrefix == "" {
		c.SecretEnvPrefix = "FIELDGUARD_SECRET_"
	}
	if c.AuditQueueDepth <= 0 {
		c.AuditQueueDepth = 256
	}
}
