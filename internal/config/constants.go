package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 8000
	defaultEnv        = "development"

	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	defaultDBDriver     = DriverSQLite
	defaultSQLitePath   = "data/yoola.db"
	defaultDBHost       = "127.0.0.1"
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
	defaultDBUser       = "root"
	defaultDBName       = "yoola"
	defaultDBCharset    = "utf8mb4"
	defaultDBLoc        = "Local"
	defaultPGSSLMode    = "disable"
	defaultMongoURI     = "mongodb://localhost:27017"
	defaultMongoDB      = "yoola"
	defaultRedisHost    = "localhost"
	defaultRedisPort    = 6379
	defaultRedisDB      = 0

	defaultSummarizerTimeoutSeconds = 90
	defaultMaxContentChars          = 24000
	defaultMaxAttempts              = 2
	defaultTemperature              = 0.2
	defaultMaxTokens                = 2500
	defaultReferer                  = "https://yoola.example.com"
	defaultAppTitle                 = "Yoola ToS Summarizer"
	defaultOpenRouterModel          = "meta-llama/llama-4-maverick"

	EnvOpenRouterAPIKey = "OPENROUTER_API_KEY"
	EnvDatabaseDSN      = "YOOLA_DATABASE_DSN"
	EnvRedisURL         = "YOOLA_REDIS_URL"
	EnvReferer          = "YOOLA_REFERER_URL"
	EnvAppTitle         = "YOOLA_APP_NAME"
)
