package fsbridge

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDebug_LeavesCallerLoggerAlone(t *testing.T) {
	var out bytes.Buffer
	shared := logrus.New()
	shared.SetOutput(&out)
	shared.SetLevel(logrus.InfoLevel)
	shared.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	cfg := DefaultConfig()
	cfg.AppKey = "a02j000000KTRjpAAH"
	cfg.Transport = nopTransport
	cfg.Logger = shared

	c, err := New(cfg)
	require.NoError(t, err)
	other, err := New(cfg)
	require.NoError(t, err)

	c.SetDebug(true)
	assert.Equal(t, logrus.InfoLevel, shared.GetLevel())
	assert.Equal(t, logrus.DebugLevel, c.logger.GetLevel())
	assert.Equal(t, logrus.DebugLevel, c.executor.logger.GetLevel(), "executor logs through the client's logger")
	assert.Equal(t, logrus.InfoLevel, other.logger.GetLevel())

	c.logger.Debug("client debug line")
	other.logger.Debug("other debug line")
	assert.Contains(t, out.String(), "client debug line", "output is still the caller's writer")
	assert.NotContains(t, out.String(), "other debug line")

	c.SetDebug(false)
	assert.Equal(t, logrus.InfoLevel, c.logger.GetLevel())
}
