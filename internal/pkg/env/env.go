// Package env reads configuration from a .env file with the process
// environment as fallback.
package env

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

var Env map[string]string

// GetEnv returns the value from the loaded .env file, then the process
// environment, then def.
func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetInt parses key as an integer, returning def when unset or malformed.
func GetInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(GetEnv(key, "")))
	if err != nil {
		return def
	}
	return v
}

// GetPositiveInt is GetInt for counts and sizes where zero or less means unset.
func GetPositiveInt(key string, def int) int {
	if v := GetInt(key, def); v > 0 {
		return v
	}
	return def
}

// GetInt64 parses key as a positive 64-bit amount, returning def otherwise.
func GetInt64(key string, def int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(GetEnv(key, "")), 10, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// GetBool accepts the forms understood by strconv.ParseBool.
func GetBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(GetEnv(key, "")))
	if err != nil {
		return def
	}
	return v
}

// GetDuration reads a positive count of unit, e.g. minutes or seconds.
func GetDuration(key string, def int, unit time.Duration) time.Duration {
	return time.Duration(GetPositiveInt(key, def)) * unit
}

// SetupEnvFile loads the first .env file found. Without one, configuration
// comes from the process environment only.
func SetupEnvFile() {
	envFiles := []string{
		".env",
		"../../.env",    // from cmd/quizfox
		"../../../.env", // from package tests
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	Env = map[string]string{}
	log.Warn("[Env] No .env file found, using process environment only")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
