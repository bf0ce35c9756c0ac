package durationunit_test

import (
	"testing"
	"time"

	"github.com/jcpaschoal/gymhub/business/types/durationunit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_AddTo(t *testing.T) {
	from := time.Date(2026, time.January, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		unit string
		n    int
		want time.Time
	}{
		{"days", 10, time.Date(2026, time.February, 10, 10, 0, 0, 0, time.UTC)},
		{"WEEK", 2, time.Date(2026, time.February, 14, 10, 0, 0, 0, time.UTC)},
		{"month", 1, time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)},
		{"YEARS", 1, time.Date(2027, time.January, 31, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			u, err := durationunit.Parse(tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.AddTo(from, tt.n))
		})
	}
}

func Test_ParseRejectsUnknown(t *testing.T) {
	_, err := durationunit.Parse("fortnight")
	assert.Error(t, err)
}
