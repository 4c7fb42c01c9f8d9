package config

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "TIFFINBOX"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "TIFFINBOX_DB_DSN"
	EnvDBHost = "TIFFINBOX_DB_HOST"
	EnvDBUser = "TIFFINBOX_DB_USER"
	EnvDBName = "TIFFINBOX_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
