package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromTimeKnownDate(t *testing.T) {
	d := FromTime(time.Date(1978, time.January, 2, 13, 30, 45, 0, time.UTC))
	assert.Equal(t, uint16(2), d.Days)
	assert.Equal(t, uint8(0x13), d.Hour)
	assert.Equal(t, uint8(0x30), d.Minute)
	assert.Equal(t, uint8(0x45), d.Second)
}

func TestRoundTripThroughBCD(t *testing.T) {
	original := time.Date(1999, time.December, 31, 23, 59, 1, 0, time.UTC)
	d := FromTime(original)
	back := d.ToTime()
	assert.Equal(t, original.Year(), back.Year())
	assert.Equal(t, original.Month(), back.Month())
	assert.Equal(t, original.Day(), back.Day())
	assert.Equal(t, original.Hour(), back.Hour())
}
