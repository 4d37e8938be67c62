package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gdoermann/manifestly/config"
)

func TestTreeRoot(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"/data/site", "/data/site"},
		{"/data/site/.manifestly.json", "/data/site"},
		{".manifestly.json", "."},
		{"site/prod", "site/prod"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, treeRoot(tt.location, ".manifestly.json"), tt.location)
	}
}

func TestEffectiveOverrides(t *testing.T) {
	cfg := config.Default()

	algorithm = ""
	assert.Equal(t, cfg.Algorithm, effectiveAlgorithm(cfg))
	algorithm = "md5"
	assert.Equal(t, "md5", effectiveAlgorithm(cfg))
	algorithm = ""

	manifestName = ""
	assert.Equal(t, cfg.ManifestName, effectiveManifestName(cfg))
	manifestName = "manifest.yaml"
	assert.Equal(t, "manifest.yaml", effectiveManifestName(cfg))
	manifestName = ""
}

func TestCommandWiring(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"generate", "refresh", "changed", "compare", "sync", "patch", "pzip", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}
