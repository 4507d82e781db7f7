package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSONFeedsPackageLogger(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "json")
	t.Cleanup(func() {
		Setup(os.Stdout, "console")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	log.Info().Str("item", "X").Msg("forecast ready")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "forecast ready", entry["message"])
	assert.Equal(t, "X", entry["item"])
}

func TestSetLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "json")
	t.Cleanup(func() {
		Setup(os.Stdout, "console")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	SetLevel("warn")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	SetLevel("loud")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
