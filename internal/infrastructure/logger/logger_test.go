package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "fatal", want: LevelFatal},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_YAML(t *testing.T) {
	var cfg struct {
		Level Level `yaml:"level"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("level: warn\n"), &cfg))
	assert.Equal(t, LevelWarn, cfg.Level)

	err := yaml.Unmarshal([]byte("level: loud\n"), &cfg)
	assert.Error(t, err)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, "level: warn\n", string(out))
}

func TestLogrusLogger_ChildSharesOutputAndLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "json"
	cfg.Fields = map[string]string{"service": "accessory-hub"}

	root := NewLogrusLogger(cfg)
	var buf bytes.Buffer
	root.SetOutput(&buf)

	child := root.WithField("component", "hub")
	child.SetLevel(LevelError)

	child.Info("dropped")
	assert.Zero(t, buf.Len())

	child.Error("kept")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "hub", line["component"])
	assert.Equal(t, "accessory-hub", line["service"])
}
