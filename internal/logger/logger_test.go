package logger

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	dir := t.TempDir()
	require.NoError(
		t, Init(
			InternalConf{
				Conf:  Conf{Dir: dir},
				Level: "debug",
			},
		),
	)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	log.Debug("hello")
	data, err := os.ReadFile(filepath.Join(dir, internalLogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestInit_InvalidLevel(t *testing.T) {
	assert.Error(t, Init(InternalConf{Level: "chatty"}))
}

func TestAccessWriter(t *testing.T) {
	w, err := AccessWriter(Conf{})
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)

	_, err = AccessWriter(Conf{Dir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}
