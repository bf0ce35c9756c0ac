package sqldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_UniqueTarget(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"column", "constraint failed: UNIQUE constraint failed: gyms.slug (2067)", "slug"},
		{"multi", "UNIQUE constraint failed: pass_tokens.token, pass_tokens.pass_id", "token"},
		{"index", "UNIQUE constraint failed: index 'uq_registration_pending_slug'", "uq_registration_pending_slug"},
		{"unknown", "something else", "something else"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uniqueTarget(tt.msg))
		})
	}
}
