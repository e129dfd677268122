package interval

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func iv(h1, m1, h2, m2 int) Interval {
	return Interval{Start: at(h1, m1), End: at(h2, m2)}
}

func TestSubtractIntervals_SplitsAroundInnerBusy(t *testing.T) {
	got := SubtractIntervals(iv(10, 0, 12, 0), []Interval{iv(10, 30, 10, 45)})
	SortByStart(got)

	assert.Equal(t, []Interval{iv(10, 0, 10, 30), iv(10, 45, 12, 0)}, got)
}

func TestSubtractIntervals_FullyCovered(t *testing.T) {
	got := SubtractIntervals(iv(10, 0, 11, 0), []Interval{iv(9, 0, 12, 0)})
	assert.Empty(t, got)
}

func TestSubtractIntervals_NoOverlapKeepsPiece(t *testing.T) {
	got := SubtractIntervals(iv(10, 0, 11, 0), []Interval{iv(11, 0, 12, 0), iv(8, 0, 10, 0)})
	assert.Equal(t, []Interval{iv(10, 0, 11, 0)}, got)
}

func TestSubtractIntervals_LeftAndRightRemainders(t *testing.T) {
	left := SubtractIntervals(iv(9, 0, 12, 0), []Interval{iv(11, 0, 13, 0)})
	assert.Equal(t, []Interval{iv(9, 0, 11, 0)}, left)

	right := SubtractIntervals(iv(9, 0, 12, 0), []Interval{iv(8, 0, 10, 0)})
	assert.Equal(t, []Interval{iv(10, 0, 12, 0)}, right)
}

func TestSubtractIntervals_BusySpanningSeveralPieces(t *testing.T) {
	busy := []Interval{iv(10, 0, 10, 30), iv(9, 30, 11, 0)}
	got := SubtractIntervals(iv(9, 0, 12, 0), busy)
	SortByStart(got)

	assert.Equal(t, []Interval{iv(9, 0, 9, 30), iv(11, 0, 12, 0)}, got)
}

func TestSubtractIntervals_IgnoresDegenerateInput(t *testing.T) {
	assert.Empty(t, SubtractIntervals(iv(10, 0, 10, 0), nil))

	got := SubtractIntervals(iv(10, 0, 11, 0), []Interval{iv(10, 30, 10, 30)})
	assert.Equal(t, []Interval{iv(10, 0, 11, 0)}, got)
}

// covered counts the minutes of free that lie inside at least one busy interval.
func covered(free Interval, busy []Interval) time.Duration {
	var total time.Duration
	for t := free.Start; t.Before(free.End); t = t.Add(time.Minute) {
		minute := Interval{Start: t, End: t.Add(time.Minute)}
		for _, b := range busy {
			if Overlaps(minute, b) {
				total += time.Minute
				break
			}
		}
	}
	return total
}

func TestSubtractIntervals_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randomInterval := func() Interval {
		a := rng.Intn(24 * 60)
		b := rng.Intn(24 * 60)
		if a > b {
			a, b = b, a
		}
		return Interval{Start: day.Add(time.Duration(a) * time.Minute), End: day.Add(time.Duration(b) * time.Minute)}
	}

	for i := 0; i < 200; i++ {
		free := randomInterval()
		busy := make([]Interval, rng.Intn(6))
		for j := range busy {
			busy[j] = randomInterval()
		}

		pieces := SubtractIntervals(free, busy)

		var total time.Duration
		for a := range pieces {
			require.False(t, pieces[a].Empty())
			total += pieces[a].Duration()
			for b := a + 1; b < len(pieces); b++ {
				require.False(t, Overlaps(pieces[a], pieces[b]), "pieces %v and %v overlap", pieces[a], pieces[b])
			}
			for _, bz := range busy {
				require.False(t, Overlaps(pieces[a], bz), "piece %v still overlaps busy %v", pieces[a], bz)
			}
		}
		require.Equal(t, free.Duration()-covered(free, busy), total)
	}
}

func TestSliceIntoSlots_ContiguousSlots(t *testing.T) {
	got := SliceIntoSlots([]Interval{iv(9, 0, 10, 0)}, 30, 30)
	assert.Equal(t, []Interval{iv(9, 0, 9, 30), iv(9, 30, 10, 0)}, got)
}

func TestSliceIntoSlots_OverlappingWhenStepShorter(t *testing.T) {
	got := SliceIntoSlots([]Interval{iv(9, 0, 9, 45)}, 30, 15)
	assert.Equal(t, []Interval{iv(9, 0, 9, 30), iv(9, 15, 9, 45)}, got)
}

func TestSliceIntoSlots_StepDefaultsToDuration(t *testing.T) {
	got := SliceIntoSlots([]Interval{iv(9, 0, 12, 0)}, 60, 0)
	assert.Equal(t, []Interval{iv(9, 0, 10, 0), iv(10, 0, 11, 0), iv(11, 0, 12, 0)}, got)
}

func TestSliceIntoSlots_TailDropped(t *testing.T) {
	got := SliceIntoSlots([]Interval{iv(9, 0, 10, 10)}, 30, 30)
	assert.Len(t, got, 2)
}

func TestSliceIntoSlots_WholeWindowsWithoutDuration(t *testing.T) {
	windows := []Interval{iv(9, 0, 10, 0), iv(10, 0, 10, 0), iv(11, 0, 11, 20)}
	got := SliceIntoSlots(windows, 0, 15)
	assert.Equal(t, []Interval{iv(9, 0, 10, 0), iv(11, 0, 11, 20)}, got)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, iv(10, 0, 11, 0), Clamp(iv(9, 0, 12, 0), iv(10, 0, 11, 0)))
	assert.True(t, Clamp(iv(9, 0, 9, 30), iv(10, 0, 11, 0)).Empty())
}

func TestOverlaps_TouchingEndpoints(t *testing.T) {
	assert.False(t, Overlaps(iv(10, 0, 11, 0), iv(11, 0, 12, 0)))
	assert.True(t, Overlaps(iv(10, 0, 11, 1), iv(11, 0, 12, 0)))
}

func TestMergeOverlapping(t *testing.T) {
	in := []Interval{iv(9, 0, 10, 0), iv(9, 30, 11, 0), iv(10, 15, 10, 45), iv(11, 0, 12, 0), iv(13, 0, 13, 0)}

	got := MergeOverlapping(in)

	assert.Equal(t, []Interval{iv(9, 0, 11, 0), iv(11, 0, 12, 0)}, got)
}
