package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port        string
	MongoURI    string
	MongoDBName string

	JWTSecret string

	GeminiAPIKey string
	GeminiModel  string

	AWSRegion     string
	AWSBucketName string

	SendGridAPIKey string
	EmailFromName  string
	EmailFromAddr  string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/"),
		MongoDBName: getEnv("MONGO_DB_NAME", "autostock"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		AWSBucketName: os.Getenv("AWS_BUCKET_NAME"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "AutoStock"),
		EmailFromAddr:  getEnv("EMAIL_FROM_ADDR", "no-reply@autostock.app"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
