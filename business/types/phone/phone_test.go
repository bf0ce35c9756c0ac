package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Parse(t *testing.T) {
	tt := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "+351 912-345-678", want: "+351912345678"},
		{in: "(21) 3456.7890", want: "2134567890"},
		{in: "12-34", err: true},
		{in: "91a234567", err: true},
		{in: "1+2345678", err: true},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			p, err := Parse(tc.in)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.String())
		})
	}
}

func Test_ParseNull(t *testing.T) {
	n, err := ParseNull("  ")
	require.NoError(t, err)
	assert.False(t, n.Valid())
	assert.False(t, ToSQLNullString(n).Valid)

	n, err = ParseNull("+44 20 7946 0958")
	require.NoError(t, err)
	assert.True(t, n.Valid())
	assert.Equal(t, "+442079460958", ToSQLNullString(n).String)
}
