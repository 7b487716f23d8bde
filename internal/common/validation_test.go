package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}

	tests := []struct {
		name      string
		format    string
		supported []string
		wantErr   bool
	}{
		{"supported format", "json", supported, false},
		{"last in list", "markdown", supported, false},
		{"unsupported format", "yaml", supported, true},
		{"empty list allows anything", "yaml", nil, false},
		{"empty format against list", "", supported, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supported)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported output format")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGetSupportedFormats(t *testing.T) {
	formats := []string{"json", "text"}
	assert.Equal(t, formats, GetSupportedFormats(formats))
	assert.Empty(t, GetSupportedFormats(nil))
}
