package mid_test

import (
	"net/http/httptest"
	"testing"

	"github.com/jcpaschoal/gymhub/app/sdk/mid"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_TenantSlug(t *testing.T) {
	def := slug.MustParse("demo-gym")

	table := []struct {
		name   string
		host   string
		header string
		want   string
	}{
		{"subdomain", "iron-temple.gymhub.app", "", "iron-temple"},
		{"subdomain with port", "iron-temple.gymhub.app:3000", "", "iron-temple"},
		{"header beats host", "iron-temple.gymhub.app", "Other-Gym", "other-gym"},
		{"www is not a tenant", "www.gymhub.app", "", "demo-gym"},
		{"multi label is not a tenant", "a.b.gymhub.app", "", "demo-gym"},
		{"bare base domain", "gymhub.app", "", "demo-gym"},
		{"foreign host", "iron-temple.example.com", "", "demo-gym"},
		{"invalid label", "x.gymhub.app", "", "demo-gym"},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/v1/passes", nil)
			r.Host = tt.host
			if tt.header != "" {
				r.Header.Set(mid.TenantHeader, tt.header)
			}

			got, err := mid.TenantSlug(r, "gymhub.app", def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func Test_TenantSlugBadHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/passes", nil)
	r.Header.Set(mid.TenantHeader, "not a slug!")

	_, err := mid.TenantSlug(r, "gymhub.app", slug.MustParse("demo-gym"))
	assert.Error(t, err)
}
