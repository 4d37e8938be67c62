package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		EnvAlgorithm, EnvManifestName, EnvChunkSize, EnvConcurrency,
		EnvFormat, EnvS3Endpoint, EnvS3AccessKey, EnvS3SecretKey, EnvS3UseSSL,
	} {
		t.Setenv(key, "")
	}

	s, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultAlgorithm, s.Algorithm)
	assert.Equal(t, DefaultManifestName, s.ManifestName)
	assert.Equal(t, DefaultIgnoreName, s.IgnoreName)
	assert.Equal(t, DefaultChunkSize, s.ChunkSize)
	assert.Equal(t, DefaultFormat, s.Format)
	assert.Positive(t, s.Concurrency)
	assert.Empty(t, s.S3.Endpoint)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvAlgorithm, "blake2b")
	t.Setenv(EnvManifestName, "manifest.json")
	t.Setenv(EnvChunkSize, "65536")
	t.Setenv(EnvConcurrency, "8")
	t.Setenv(EnvFormat, "yaml")
	t.Setenv(EnvS3Endpoint, "minio.local:9000")
	t.Setenv(EnvS3AccessKey, "ak")
	t.Setenv(EnvS3SecretKey, "sk")
	t.Setenv(EnvS3UseSSL, "true")

	s, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "blake2b", s.Algorithm)
	assert.Equal(t, "manifest.json", s.ManifestName)
	assert.Equal(t, 65536, s.ChunkSize)
	assert.Equal(t, 8, s.Concurrency)
	assert.Equal(t, "yaml", s.Format)
	assert.Equal(t, "minio.local:9000", s.S3.Endpoint)
	assert.True(t, s.S3.UseSSL)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"chunk size not a number", EnvChunkSize, "lots"},
		{"chunk size negative", EnvChunkSize, "-1"},
		{"concurrency zero", EnvConcurrency, "0"},
		{"use ssl not a bool", EnvS3UseSSL, "perhaps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			require.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	t.Setenv(EnvAlgorithm, "md5")

	// Default ignores the environment entirely.
	s := Default()
	assert.Equal(t, DefaultAlgorithm, s.Algorithm)
}
