package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONFormat(t *testing.T) {
	l, err := Init(Options{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	var buf bytes.Buffer
	SetOutput(&buf)
	WithField("cve", "CVE-2024-0001").Info("kev hit")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kev hit", entry["message"])
	assert.Equal(t, "CVE-2024-0001", entry["cve"])
	assert.Contains(t, entry, "timestamp")
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	l, err := Init(Options{Level: "loud", Format: "text"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	_, err := Init(Options{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
