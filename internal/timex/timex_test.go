package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", in: `"1m30s"`, want: 90 * time.Second},
		{name: "nanoseconds", in: `1000000000`, want: time.Second},
		{name: "bad string", in: `"soon"`, wantErr: true},
		{name: "bool", in: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 2 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, `"2m0s"`, string(b))
}

func TestParseTimestamp(t *testing.T) {
	utc := func(y int, m time.Month, d, h, min, s, ns int) time.Time {
		return time.Date(y, m, d, h, min, s, ns, time.UTC)
	}

	tests := []struct {
		name string
		in   string
		want *time.Time
	}{
		{name: "rfc3339 zulu", in: "2024-03-01T10:20:30Z", want: ptr(utc(2024, 3, 1, 10, 20, 30, 0))},
		{name: "rfc3339 fractional offset", in: "2024-03-01T10:20:30.123456+00:00", want: ptr(utc(2024, 3, 1, 10, 20, 30, 123456000))},
		{name: "postgres timestamptz", in: "2024-03-01 10:20:30.5+00", want: ptr(utc(2024, 3, 1, 10, 20, 30, 500000000))},
		{name: "no zone", in: "2024-03-01T10:20:30", want: ptr(utc(2024, 3, 1, 10, 20, 30, 0))},
		{name: "date only", in: "2024-03-01", want: ptr(utc(2024, 3, 1, 0, 0, 0, 0))},
		{name: "blank", in: "   ", want: nil},
		{name: "garbage", in: "yesterday", want: nil},
		{name: "impossible date", in: "2024-02-31T00:00:00Z", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestParseNullTimestamp_Nil(t *testing.T) {
	assert.Nil(t, ParseNullTimestamp(nil))
	s := "2024-01-01"
	assert.NotNil(t, ParseNullTimestamp(&s))
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 0, 0, time.UTC)
	assert.Equal(t, "2024-05-06 07:08", Format(&ts, "2006-01-02 15:04", "N/A"))
	assert.Equal(t, "N/A", Format(nil, "2006-01-02 15:04", "N/A"))
}

func ptr(t time.Time) *time.Time { return &t }
