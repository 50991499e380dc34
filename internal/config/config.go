package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the portal backend.
type Config struct {
	Port      string
	MongoURI  string
	MongoDB   string
	JWTSecret string

	// Remote drive API
	DriveBaseURL string
	TokenURL     string
	ClientID     string
	ClientSecret string
	DriveScopes  []string
	SiteHost     string
	SitePath     string
	UploadFolder string

	// Upload pipeline tuning
	ChunkThrottle        time.Duration
	URLCacheTTL          time.Duration
	MaxConcurrentUploads int
}

// Load reads configuration from the environment, with a .env file as an
// optional source and local-development fallbacks for everything.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, using environment variables")
	}

	return Config{
		Port:      getenv("PORT", "8080"),
		MongoURI:  getenv("MONGO_URI", "mongodb://localhost:27017/fileportal"),
		MongoDB:   getenv("MONGO_DB", "fileportal"),
		JWTSecret: getenv("JWT_SECRET", "dev-secret"),

		DriveBaseURL: getenv("DRIVE_BASE_URL", "https://graph.example.com/v1.0"),
		TokenURL:     getenv("DRIVE_TOKEN_URL", "https://login.example.com/oauth2/v2.0/token"),
		ClientID:     getenv("DRIVE_CLIENT_ID", ""),
		ClientSecret: getenv("DRIVE_CLIENT_SECRET", ""),
		DriveScopes:  []string{getenv("DRIVE_SCOPE", "https://graph.example.com/.default")},
		SiteHost:     getenv("DRIVE_SITE_HOST", "example.sharepoint.com"),
		SitePath:     getenv("DRIVE_SITE_PATH", "/sites/fileportal"),
		UploadFolder: getenv("DRIVE_UPLOAD_FOLDER", "uploads"),

		ChunkThrottle:        getduration("UPLOAD_CHUNK_THROTTLE_MS", 0),
		URLCacheTTL:          getduration("URL_CACHE_TTL_MS", 3600_000),
		MaxConcurrentUploads: getint("MAX_CONCURRENT_UPLOADS", 8),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getduration(key string, fallbackMS int) time.Duration {
	return time.Duration(getint(key, fallbackMS)) * time.Millisecond
}
