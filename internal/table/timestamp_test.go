package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		name string
		in   string
	}{
		{"iso with space", "2024-03-01 12:30:00"},
		{"rfc3339", "2024-03-01T12:30:00Z"},
		{"epoch ms", "1709296200000"},
		{"epoch s", "1709296200"},
		{"padded", "  2024-03-01 12:30:00 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{"", "not a date", "NaT"} {
		_, err := ParseTimestamp(in)
		assert.Error(t, err, in)
	}
}
