package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var osLookupEnv = os.LookupEnv

// loadDotEnv merges a .env file from the working directory into the process
// environment. Variables already set take precedence; a missing file is fine.
func loadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Errorf("load .env: %w", err))
	}
}

// parseEnv overlays settings found in the environment.
//
//	SECRET_KEY, ISSUER, AUDIENCE
//	ACCESS_LIFETIME_MINUTES, REFRESH_LIFETIME_DAYS, CLOCK_SKEW_SECONDS
//	HTTP_ADDR, GRPC_ADDR, DATABASE_DSN
//	TOKEN_STORE, REDIS_ADDR
//	RATE_LIMIT_RPS, RATE_LIMIT_BURST, CORS_ALLOWED_ORIGINS (comma separated)
//	LOG_LEVEL
func parseEnv(c *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, unit time.Duration, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			panic(fmt.Errorf("%s: %w", key, err))
		}
		*dst = time.Duration(n) * unit
	}

	str("SECRET_KEY", &c.SecretKey)
	str("ISSUER", &c.Issuer)
	str("AUDIENCE", &c.Audience)
	num("ACCESS_LIFETIME_MINUTES", time.Minute, &c.AccessTokenValidityDuration)
	num("REFRESH_LIFETIME_DAYS", 24*time.Hour, &c.RefreshTokenValidityDuration)
	num("CLOCK_SKEW_SECONDS", time.Second, &c.ClockSkew)
	str("HTTP_ADDR", &c.EndpointAddrHTTP)
	str("GRPC_ADDR", &c.EndpointAddrGRPC)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("TOKEN_STORE", &c.TokenStore)
	str("REDIS_ADDR", &c.RedisAddr)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("RATE_LIMIT_RPS"); ok && v != "" {
		rps, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			panic(fmt.Errorf("RATE_LIMIT_RPS: %w", err))
		}
		c.RateLimitRPS = rps
	}
	if v, ok := lookup("RATE_LIMIT_BURST"); ok && v != "" {
		burst, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			panic(fmt.Errorf("RATE_LIMIT_BURST: %w", err))
		}
		c.RateLimitBurst = burst
	}
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
}

func splitList(v string) []string {
	var res []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}
