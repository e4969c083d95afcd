package config

import "os"

type Config struct {
	Port                    string
	Env                     string
	AppOrigin               string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	JWTSecret               string
	ArtifactDir             string
	FFmpegPath              string
}

func Load() *Config {
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		AppOrigin:               getEnv("APP_ORIGIN", "http://localhost:3000"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		ArtifactDir:             getEnv("ARTIFACT_DIR", os.TempDir()),
		FFmpegPath:              getEnv("FFMPEG_PATH", "ffmpeg"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
