package config

// EnvPrefix is handed to envconfig; individual fields carry explicit
// envconfig tags so the prefix only matters for overrides.
const EnvPrefix = "RUTASUR"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error
// messages).
const (
	EnvAppEnv     = "RUTASUR_APP_ENV"
	EnvPort       = "RUTASUR_APP_PORT"
	EnvDBDSN      = "RUTASUR_DB_DSN"
	EnvDBHost     = "RUTASUR_DB_HOST"
	EnvDBUser     = "RUTASUR_DB_USER"
	EnvDBName     = "RUTASUR_DB_NAME"
	EnvRedisURL   = "RUTASUR_REDIS_URL"
	EnvJWTSecret  = "RUTASUR_JWT_SECRET"
	EnvJWTIssuer  = "RUTASUR_JWT_ISSUER"
	EnvJWTExpMins = "RUTASUR_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
