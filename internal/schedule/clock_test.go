package schedule

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		c, err := ParseClock("09:45")
		require.NoError(t, err)
		assert.Equal(t, 585, c.Minutes())

		c, err = ParseClock("00:00")
		require.NoError(t, err)
		assert.Equal(t, 0, c.Minutes())

		c, err = ParseClock("23:59")
		require.NoError(t, err)
		assert.Equal(t, 1439, c.Minutes())
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, in := range []string{"", "9", "ab:cd", "10:", ":30", "24:00", "10:60", "10:00:00", "-1:10"} {
			_, err := ParseClock(in)
			assert.ErrorIs(t, err, ErrInvalidClock, in)
		}
	})
}

func TestAddMinutes(t *testing.T) {
	got, err := AddMinutes("09:00", 45)
	require.NoError(t, err)
	assert.Equal(t, "09:45", got)

	got, err = AddMinutes("10:30", 90)
	require.NoError(t, err)
	assert.Equal(t, "12:00", got)

	// wall-clock rollover
	got, err = AddMinutes("23:30", 45)
	require.NoError(t, err)
	assert.Equal(t, "00:15", got)

	_, err = AddMinutes("nope", 10)
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestTimeToMinutes(t *testing.T) {
	m, err := TimeToMinutes("20:30")
	require.NoError(t, err)
	assert.Equal(t, 1230, m)

	_, err = TimeToMinutes("20-30")
	assert.Error(t, err)
}

func TestClockAddDoesNotWrap(t *testing.T) {
	c := MustClock("23:30").Add(45)
	assert.Equal(t, MinutesPerDay+15, c.Minutes())
	assert.Equal(t, "00:15", c.String())
	assert.True(t, c > MustClock("23:59"))
}

func TestClockOfAndOn(t *testing.T) {
	loc := time.FixedZone("salon", 3600)
	ts := time.Date(2025, 3, 14, 10, 15, 0, 0, loc)
	assert.Equal(t, MustClock("10:15"), ClockOf(ts))

	day := time.Date(2025, 3, 14, 18, 0, 0, 0, loc)
	assert.Equal(t, ts, MustClock("10:15").On(day))
}

func TestClockOnOffsetChange(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	for _, date := range []string{"2026-03-29", "2026-10-25"} {
		day, err := time.ParseInLocation("2006-01-02", date, london)
		require.NoError(t, err)

		for _, label := range []string{"09:00", "10:00", "20:30"} {
			at := MustClock(label).On(day)
			assert.Equal(t, MustClock(label), ClockOf(at), "%s %s", date, label)
			assert.Equal(t, day.Day(), at.Day())
		}
	}

	// past midnight rolls onto the next date
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC), MustClock("23:45").Add(45).On(day))
}

func TestClockText(t *testing.T) {
	var c Clock
	require.NoError(t, c.UnmarshalText([]byte("07:05")))
	assert.Equal(t, MustClock("07:05"), c)

	b, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "07:05", string(b))

	assert.Error(t, c.UnmarshalText([]byte("7h05")))
}
