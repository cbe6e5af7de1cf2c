package scheduling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinuteOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want MinuteOfDay
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:00", 540, true},
		{"09:30", 570, true},
		{"23:59", 1439, true},
		{"24:00", 1440, true},
		{"24:01", 0, false},
		{"25:00", 0, false},
		{"09:60", 0, false},
		{"nine", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseMinuteOfDay(tc.in)
		if tc.ok {
			require.NoError(t, err, "parse %q", tc.in)
			assert.Equal(t, tc.want, got, "parse %q", tc.in)
		} else {
			assert.Error(t, err, "parse %q", tc.in)
		}
	}
}

func TestMinuteOfDayJSON(t *testing.T) {
	data, err := json.Marshal(MinuteOfDay(570))
	require.NoError(t, err)
	assert.Equal(t, `"09:30"`, string(data))

	var m MinuteOfDay
	require.NoError(t, json.Unmarshal([]byte(`"14:05"`), &m))
	assert.Equal(t, MinuteOfDay(845), m)

	assert.Error(t, json.Unmarshal([]byte(`845`), &m))
}

func TestNormalizeDate(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2026, time.September, 7, 3, 45, 12, 0, loc)

	got := NormalizeDate(in)
	assert.Equal(t, time.Date(2026, time.September, 6, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, got, NormalizeDate(got))
}

func TestExceptionCovers(t *testing.T) {
	clinicA := uuid.New()
	clinicB := uuid.New()
	date := monday

	t.Run("day off covers the whole date", func(t *testing.T) {
		e := ScheduleException{Kind: ExceptionDayOff, Date: date}
		assert.True(t, e.Covers(date, 0, nil))
		assert.True(t, e.Covers(date, 1439, &clinicA))
		assert.False(t, e.Covers(date.AddDate(0, 0, 1), 540, nil))
	})

	t.Run("blocked interval covers its range", func(t *testing.T) {
		e := ScheduleException{Kind: ExceptionBlockedInterval, Date: date, StartMinute: 570, EndMinute: 600}
		assert.True(t, e.Covers(date, 570, nil))
		assert.False(t, e.Covers(date, 600, nil)) // end is exclusive
		assert.False(t, e.Covers(date, 540, nil))
	})

	t.Run("clinic-scoped interval only covers that clinic", func(t *testing.T) {
		e := ScheduleException{Kind: ExceptionBlockedInterval, Date: date, StartMinute: 570, EndMinute: 600, ClinicID: &clinicA}
		assert.True(t, e.Covers(date, 570, &clinicA))
		assert.False(t, e.Covers(date, 570, &clinicB))
		// a slot not tied to one clinic is still covered
		assert.True(t, e.Covers(date, 570, nil))
	})
}
