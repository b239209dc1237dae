package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VIDEO_POLL_TIMEOUT", "")
	t.Setenv("WORKER_CONCURRENCY", "500")
	t.Setenv("HEYGEN_TEMPLATE_ALTERNATES", " alt-1, ,alt-2 ")

	cfg := Load()
	assert.Equal(t, 300*time.Second, cfg.VideoPollTimeout)
	assert.Equal(t, 50, cfg.WorkerConcurrency)
	assert.Equal(t, []string{"alt-1", "alt-2"}, cfg.TemplateAlternates)
}

func TestParsePairs(t *testing.T) {
	got := parsePairs("rachel=21m00Tcm4TlvDq8ikWAM, adam = pNInz6obpgDQGcFmaJgB,rawid")
	assert.Equal(t, map[string]string{
		"rachel": "21m00Tcm4TlvDq8ikWAM",
		"adam":   "pNInz6obpgDQGcFmaJgB",
		"rawid":  "rawid",
	}, got)
}
