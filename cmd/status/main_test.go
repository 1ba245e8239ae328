package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func Test_readSettings(t *testing.T) {
	got := readSettings(viper.New())
	assert.Equal(t, settings{port: 8000, workers: 2, wsTimeout: 30 * time.Minute}, got)

	v := viper.New()
	v.Set("port", 8010)
	v.Set("worker.count", 5)
	v.Set("ws.timeout", "2m")
	v.Set("debug.port", 8011)
	got = readSettings(v)
	assert.Equal(t, settings{port: 8010, workers: 5, wsTimeout: 2 * time.Minute, debugPort: 8011}, got)
}
