// Package config resolves manifestly settings from the environment into an
// explicit immutable value. Resolution happens once at the process boundary;
// core packages receive the resulting Settings and never read ambient
// environment state themselves.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
)

// Defaults applied when neither the environment nor an explicit override
// provides a value.
const (
	DefaultAlgorithm    = "sha256"
	DefaultManifestName = ".manifestly.json"
	DefaultIgnoreName   = ".manifestlyignore"
	DefaultChunkSize    = 8192
	DefaultFormat       = "json"
)

// Environment variable names recognized during resolution.
const (
	EnvAlgorithm    = "MANIFESTLY_HASH_ALGORITHM"
	EnvManifestName = "MANIFESTLY_NAME"
	EnvChunkSize    = "MANIFESTLY_CHUNK_SIZE"
	EnvConcurrency  = "MANIFESTLY_CONCURRENCY"
	EnvFormat       = "MANIFESTLY_FORMAT"
	EnvS3Endpoint   = "MANIFESTLY_S3_ENDPOINT"
	EnvS3AccessKey  = "MANIFESTLY_S3_ACCESS_KEY"
	EnvS3SecretKey  = "MANIFESTLY_S3_SECRET_KEY"
	EnvS3UseSSL     = "MANIFESTLY_S3_USE_SSL"
)

// Settings is the resolved manifestly configuration.
type Settings struct {
	// Algorithm is the hash algorithm name (default sha256).
	Algorithm string

	// ManifestName is the default manifest filename inside a directory.
	ManifestName string

	// IgnoreName is the ignore filename looked up at the scan root.
	IgnoreName string

	// ChunkSize is the read size in bytes for chunked hashing.
	ChunkSize int

	// Concurrency bounds the scan and sync worker pools.
	Concurrency int

	// Format selects the manifest serialization format (json or yaml).
	Format string

	// Exclude and Include are explicit pattern overrides, applied after the
	// ignore file with include patterns taking final precedence.
	Exclude []string
	Include []string

	// S3 holds connection settings for object-store locations.
	S3 S3Settings
}

// S3Settings configures access to S3-compatible object stores.
type S3Settings struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// FromEnv resolves Settings from environment variables, falling back to
// defaults. It never fails on absent variables, only on unparseable ones.
func FromEnv() (Settings, error) {
	s := Settings{
		Algorithm:    envOr(EnvAlgorithm, DefaultAlgorithm),
		ManifestName: envOr(EnvManifestName, DefaultManifestName),
		IgnoreName:   DefaultIgnoreName,
		ChunkSize:    DefaultChunkSize,
		Concurrency:  runtime.GOMAXPROCS(0),
		Format:       envOr(EnvFormat, DefaultFormat),
		S3: S3Settings{
			Endpoint:  os.Getenv(EnvS3Endpoint),
			AccessKey: os.Getenv(EnvS3AccessKey),
			SecretKey: os.Getenv(EnvS3SecretKey),
		},
	}

	if v := os.Getenv(EnvChunkSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Settings{}, fmt.Errorf("invalid %s %q: must be a positive integer", EnvChunkSize, v)
		}
		s.ChunkSize = n
	}

	if v := os.Getenv(EnvConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Settings{}, fmt.Errorf("invalid %s %q: must be a positive integer", EnvConcurrency, v)
		}
		s.Concurrency = n
	}

	if v := os.Getenv(EnvS3UseSSL); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid %s %q: must be a boolean", EnvS3UseSSL, v)
		}
		s.S3.UseSSL = b
	}

	return s, nil
}

// Default returns the built-in settings without consulting the environment.
func Default() Settings {
	return Settings{
		Algorithm:    DefaultAlgorithm,
		ManifestName: DefaultManifestName,
		IgnoreName:   DefaultIgnoreName,
		ChunkSize:    DefaultChunkSize,
		Concurrency:  runtime.GOMAXPROCS(0),
		Format:       DefaultFormat,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
