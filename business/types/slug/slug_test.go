package slug_test

import (
	"testing"

	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Parse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"simple", "ironworks", "ironworks", true},
		{"hyphen", "iron-works-42", "iron-works-42", true},
		{"normalized", "  IronWorks ", "ironworks", true},
		{"too short", "a", "", false},
		{"leading hyphen", "-iron", "", false},
		{"trailing hyphen", "iron-", "", false},
		{"double hyphen", "iron--works", "", false},
		{"dot", "iron.works", "", false},
		{"underscore", "iron_works", "", false},
		{"reserved", "www", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := slug.Parse(tt.input)
			if !tt.ok {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
