package month

import (
	"fmt"
	"testing"
	"time"

	"github.com/financeflow/financeflow/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "leap year february",
			token:     "2024-02",
			wantStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "december rolls over to next year",
			token:     "2023-12",
			wantStart: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "january",
			token:     "2025-01",
			wantStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Resolve(tt.token)

			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(r.Start), "start: got %s", r.Start)
			assert.True(t, tt.wantEnd.Equal(r.End), "end: got %s", r.End)
			assert.Equal(t, time.UTC, r.Start.Location())
		})
	}
}

func TestResolve_InvalidTokens(t *testing.T) {
	for _, token := range []string{"", "2024", "2024-3", "2024-13", "2024-00", "24-03", "2024/03", "2024-03-01", " 2024-03", "march"} {
		t.Run(fmt.Sprintf("token %q", token), func(t *testing.T) {
			_, err := Resolve(token)

			assert.ErrorIs(t, err, ErrInvalidMonthFormat)
		})
	}
}

func TestResolve_EndIsStartOfFollowingMonth(t *testing.T) {
	for year := 1999; year <= 2101; year++ {
		for m := 1; m <= 12; m++ {
			r, err := Resolve(fmt.Sprintf("%04d-%02d", year, m))
			require.NoError(t, err)

			nextToken := fmt.Sprintf("%04d-%02d", year, m+1)
			if m == 12 {
				nextToken = fmt.Sprintf("%04d-01", year+1)
			}
			next, err := Resolve(nextToken)
			require.NoError(t, err)

			assert.True(t, r.End.Equal(next.Start), "%s end %s != %s start %s", fmt.Sprintf("%04d-%02d", year, m), r.End, nextToken, next.Start)
		}
	}
}

func TestRange_Contains(t *testing.T) {
	r, err := Resolve("2024-03")
	require.NoError(t, err)

	assert.True(t, r.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)))
}

func TestCurrent(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	// 00:30 local on March 1st is still February in UTC
	clock := &utils.MockClock{FixedNow: time.Date(2024, 3, 1, 0, 30, 0, 0, warsaw)}

	assert.Equal(t, "2024-02", Current(clock))
	assert.NoError(t, Validate(Current(clock)))
}
