package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalize_EmbeddedLocales(t *testing.T) {
	tests := []struct {
		name  string
		langs []string
		want  string
	}{
		{"spanish", []string{"es"}, "Se requiere un motivo para registrar una merma"},
		{"english", []string{"en"}, "A reason is required to record a loss"},
		{"unsupported falls back", []string{"fr"}, "A reason is required to record a loss"},
		{"no language", nil, "A reason is required to record a loss"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Localize("missing_reason", nil, tt.langs...))
		})
	}
}

func TestLocalize_TemplateDataAndUnknownID(t *testing.T) {
	msg := Localize("invalid_argument", map[string]interface{}{"Detail": "amount must be positive"}, "es")
	assert.Equal(t, "Solicitud inválida: amount must be positive", msg)

	assert.Equal(t, "no_such_message", Localize("no_such_message", nil, "en"))
}

func TestLoad_OverridesEmbeddedMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active.pt.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"missing_reason": "Informe o motivo da perda"}`), 0o600))

	require.NoError(t, Load(path))
	assert.Equal(t, "Informe o motivo da perda", Localize("missing_reason", nil, "pt"))
}
