package app

import (
	"strings"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/utils"
)

type Config struct {
	Port           string
	JWTSecretKey   string
	AllowOrigins   []string
	WorkerEnabled  bool
	MaxJobAttempts int
}

func LoadConfig(log *logger.Logger) Config {
	port := utils.GetEnv("PORT", "8080", log)
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	origins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log)
	workerEnabled := utils.GetEnv("INGEST_WORKER_ENABLED", "true", log)
	maxAttempts := utils.GetEnvAsInt("INGEST_MAX_ATTEMPTS", 5, log)

	allowOrigins := []string{}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowOrigins = append(allowOrigins, o)
		}
	}

	return Config{
		Port:           port,
		JWTSecretKey:   jwtSecretKey,
		AllowOrigins:   allowOrigins,
		WorkerEnabled:  strings.EqualFold(workerEnabled, "true"),
		MaxJobAttempts: maxAttempts,
	}
}
