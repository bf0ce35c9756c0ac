package userapp

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseFilter(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/users?name=%20ana%20&email=ana@example.com&blocked=true", nil)

	filter, err := parseFilter(parseQueryParams(r))
	require.NoError(t, err)

	require.NotNil(t, filter.Name)
	assert.Equal(t, "ana", *filter.Name)
	require.NotNil(t, filter.Email)
	assert.Equal(t, "ana@example.com", filter.Email.Address)
	require.NotNil(t, filter.Blocked)
	assert.True(t, *filter.Blocked)
	assert.Nil(t, filter.ID)
}

func Test_ParseFilterErrors(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/users?user_id=nope&blocked=maybe", nil)

	_, err := parseFilter(parseQueryParams(r))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id")
	assert.Contains(t, err.Error(), "blocked")
}
