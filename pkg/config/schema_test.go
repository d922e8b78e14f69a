package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gridscreen/pkg/config"
)

func TestValidateYAML_Valid(t *testing.T) {
	t.Parallel()

	violations, err := config.ValidateYAML([]byte(`screening:
  short_hour_window: 24
  anomalous_pct: 0.85
server:
  read_timeout: 30s
  max_body_size: 8MB
`))
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateYAML_Empty(t *testing.T) {
	t.Parallel()

	violations, err := config.ValidateYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateYAML_Violations(t *testing.T) {
	t.Parallel()

	violations, err := config.ValidateYAML([]byte(`screening:
  short_hour_window: 0
  unknown_knob: 3
output:
  format: xml
server:
  read_timeout: soon
`))
	require.ErrorIs(t, err, config.ErrSchemaViolation)
	assert.Len(t, violations, 4)

	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}

	assert.Contains(t, fields, "screening.short_hour_window")
	assert.Contains(t, fields, "output.format")
	assert.Contains(t, fields, "server.read_timeout")
}

func TestValidateYAML_Malformed(t *testing.T) {
	t.Parallel()

	_, err := config.ValidateYAML([]byte("screening: [unclosed"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrSchemaViolation)
}

func TestValidateFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  workers: 4\n"), 0o600))

	violations, err := config.ValidateFile(path)
	require.NoError(t, err)
	assert.Empty(t, violations)

	_, err = config.ValidateFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSchema_IsJSON(t *testing.T) {
	t.Parallel()

	var doc map[string]any

	require.NoError(t, json.Unmarshal(config.Schema(), &doc))
	assert.Equal(t, "object", doc["type"])
}
