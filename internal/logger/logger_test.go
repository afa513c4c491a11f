package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func Test_ParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func Test_New_FiltersBelowLevelAndWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(WarnLevel, &buf, "production")

	log.Info().Msg("hidden")
	log.Warn().Str("isbn", "978-1").Msg("LoanBook: book already on loan")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"isbn":"978-1"`)
	assert.Contains(t, out, `"level":"warn"`)
}
