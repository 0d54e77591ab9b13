package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/smokefree/internal/models"
)

func TestDaysSinceCountsCalendarDays(t *testing.T) {
	quit := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysSince(quit, quit.Add(20*time.Minute), time.UTC))
	assert.Equal(t, 1, DaysSince(quit, quit.Add(40*time.Minute), time.UTC))
	assert.Equal(t, 7, DaysSince(quit, time.Date(2024, 1, 8, 1, 0, 0, 0, time.UTC), time.UTC))
	assert.Equal(t, 0, DaysSince(quit, quit.AddDate(0, 0, -3), time.UTC))
}

func TestDaysSinceUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	quit := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) // 19:00 in Tokyo
	now := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)  // 01:00 next day in Tokyo

	assert.Equal(t, 0, DaysSince(quit, now, time.UTC))
	assert.Equal(t, 1, DaysSince(quit, now, tokyo))
	assert.Equal(t, 0, DaysSince(quit, now, nil))
}

func TestDaysSinceAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	quit := time.Date(2024, 3, 9, 12, 0, 0, 0, ny)
	now := time.Date(2024, 3, 16, 0, 30, 0, 0, ny)
	assert.Equal(t, 7, DaysSince(quit, now, ny))
}

func TestCalculate(t *testing.T) {
	profile := models.QuitProfile{
		QuitDate:         time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		CigarettesPerDay: 15,
		PackSize:         20,
		PackPrice:        9.5,
	}
	stats := Calculate(profile, time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC), time.UTC)

	assert.Equal(t, 10, stats.DaysSinceQuit)
	assert.Equal(t, 150, stats.CigarettesAvoided)
	assert.InDelta(t, 71.25, stats.MoneySaved, 0.001)
	require.NotNil(t, stats.NextMilestone)
	assert.Equal(t, 14, stats.NextMilestone.Days)
	assert.Equal(t, 4, stats.DaysToNextMilestone)
}

func TestCalculateDefaultsAndLastMilestone(t *testing.T) {
	profile := models.QuitProfile{
		QuitDate:         time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		CigarettesPerDay: 10,
		PackPrice:        10,
	}
	stats := Calculate(profile, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC)

	assert.Equal(t, 730, stats.DaysSinceQuit)
	assert.InDelta(t, 3650.0, stats.MoneySaved, 0.001)
	assert.Nil(t, stats.NextMilestone)
	assert.Zero(t, stats.DaysToNextMilestone)
}
