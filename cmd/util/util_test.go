package util

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("  short   text "))
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("90")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = ParseDuration("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = ParseDuration("soon")
	assert.Error(t, err)
}

func TestClientSettings(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("endpoints", "http://a:8080, b:8080,")
	viper.Set("timeout", 3)
	viper.Set("retries", 2)
	viper.Set("serializer", "cbor")
	viper.Set("transport", "tcp")

	config := GetClientConfig()
	assert.Equal(t, []string{"http://a:8080", "b:8080"}, config.Endpoints)
	assert.Equal(t, 3, config.TimeoutSecond)
	assert.Equal(t, 2, config.RetryCount)

	_, err := GetSerializer()
	assert.NoError(t, err)

	_, err = GetTransport()
	assert.Error(t, err)
}
