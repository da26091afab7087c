package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock_Valid(t *testing.T) {
	m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)

	m, err = ParseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, m)

	m, err = ParseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 1439, m)
}

func TestParseClock_Invalid(t *testing.T) {
	invalid := []string{"", "9:30", "09:60", "24:00", "0930", "ab:cd", "09-30"}
	for _, s := range invalid {
		_, err := ParseClock(s)
		assert.Error(t, err, "expected error for %q", s)
	}
}

func TestFormatClock_RoundTrips(t *testing.T) {
	assert.Equal(t, "09:05", FormatClock(545))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "17:30", FormatClock(1050))
}

func TestParseRange_RejectsInverted(t *testing.T) {
	_, err := ParseRange("10:00", "09:00")
	assert.Error(t, err)

	_, err = ParseRange("10:00", "10:00")
	assert.Error(t, err)
}

func TestOverlaps_Symmetric(t *testing.T) {
	a := Range{Start: 540, End: 600}
	b := Range{Start: 570, End: 630}

	assert.True(t, Overlaps(a, b))
	assert.True(t, Overlaps(b, a))
}

func TestOverlaps_SelfOverlap(t *testing.T) {
	a := Range{Start: 540, End: 600}
	assert.True(t, Overlaps(a, a))
}

func TestOverlaps_TouchingEndpointsDoNotOverlap(t *testing.T) {
	a := Range{Start: 540, End: 600}
	b := Range{Start: 600, End: 660}

	assert.False(t, Overlaps(a, b))
	assert.False(t, Overlaps(b, a))
}

func TestOverlaps_Containment(t *testing.T) {
	outer := Range{Start: 480, End: 720}
	inner := Range{Start: 540, End: 600}

	assert.True(t, Overlaps(outer, inner))
	assert.True(t, Overlaps(inner, outer))
}

func TestIntersect(t *testing.T) {
	a := Range{Start: 480, End: 1080} // 08:00-18:00
	b := Range{Start: 540, End: 1020} // 09:00-17:00

	r, ok := Intersect(a, b)
	require.True(t, ok)
	assert.Equal(t, Range{Start: 540, End: 1020}, r)
}

func TestIntersect_Disjoint(t *testing.T) {
	a := Range{Start: 480, End: 540}
	b := Range{Start: 600, End: 660}

	_, ok := Intersect(a, b)
	assert.False(t, ok)
}

func TestMergeOverlapping_Empty(t *testing.T) {
	assert.Empty(t, MergeOverlapping(nil))
}

func TestMergeOverlapping_FoldsOverlaps(t *testing.T) {
	merged := MergeOverlapping([]Range{
		{Start: 600, End: 660},
		{Start: 540, End: 630},
		{Start: 720, End: 780},
	})

	assert.Equal(t, []Range{
		{Start: 540, End: 660},
		{Start: 720, End: 780},
	}, merged)
}

func TestMergeOverlapping_FoldsTouching(t *testing.T) {
	merged := MergeOverlapping([]Range{
		{Start: 540, End: 600},
		{Start: 600, End: 660},
	})

	assert.Equal(t, []Range{{Start: 540, End: 660}}, merged)
}

func TestMergeOverlapping_Idempotent(t *testing.T) {
	input := []Range{
		{Start: 540, End: 630},
		{Start: 600, End: 660},
		{Start: 480, End: 500},
		{Start: 700, End: 720},
	}

	once := MergeOverlapping(input)
	twice := MergeOverlapping(once)
	assert.Equal(t, once, twice)

	// Output is sorted with no two elements overlapping or touching
	for i := 1; i < len(once); i++ {
		assert.Greater(t, once[i].Start, once[i-1].End)
	}
}

func TestMergeOverlapping_DoesNotMutateInput(t *testing.T) {
	input := []Range{
		{Start: 600, End: 660},
		{Start: 540, End: 630},
	}
	MergeOverlapping(input)

	assert.Equal(t, Range{Start: 600, End: 660}, input[0])
}

func TestSubtractBlocked_NoBlocked(t *testing.T) {
	span := Range{Start: 540, End: 1020}
	free := SubtractBlocked(span, nil)

	assert.Equal(t, []Range{span}, free)
}

func TestSubtractBlocked_FullyBlocked(t *testing.T) {
	span := Range{Start: 540, End: 1020}
	free := SubtractBlocked(span, []Range{span})

	assert.Empty(t, free)
}

func TestSubtractBlocked_MiddleBlock(t *testing.T) {
	span := Range{Start: 540, End: 1020}            // 09:00-17:00
	blocked := []Range{{Start: 600, End: 660}}      // 10:00-11:00

	free := SubtractBlocked(span, blocked)
	assert.Equal(t, []Range{
		{Start: 540, End: 600},
		{Start: 660, End: 1020},
	}, free)
}

func TestSubtractBlocked_BlockOverhangingEdges(t *testing.T) {
	span := Range{Start: 540, End: 1020}
	blocked := []Range{
		{Start: 480, End: 570},  // overhangs start
		{Start: 990, End: 1080}, // overhangs end
	}

	free := SubtractBlocked(span, blocked)
	assert.Equal(t, []Range{{Start: 570, End: 990}}, free)
}

func TestSubtractBlocked_FreePlusBlockedCoversSpan(t *testing.T) {
	span := Range{Start: 480, End: 1080}
	blocked := []Range{
		{Start: 500, End: 560},
		{Start: 540, End: 620},
		{Start: 900, End: 960},
	}

	free := SubtractBlocked(span, blocked)

	// Union of free output and clipped blocked set covers span exactly,
	// with no overlap between free ranges and blocked ranges
	covered := 0
	for _, f := range free {
		covered += f.Duration()
		for _, b := range blocked {
			assert.False(t, Overlaps(f, b), "free %v overlaps blocked %v", f, b)
		}
	}
	for _, b := range MergeOverlapping(blocked) {
		if clipped, ok := Intersect(b, span); ok {
			covered += clipped.Duration()
		}
	}
	assert.Equal(t, span.Duration(), covered)
}

func TestSliceIntoSlots_EmitsOverlappingCandidates(t *testing.T) {
	free := []Range{{Start: 540, End: 660}} // 09:00-11:00

	slots := SliceIntoSlots(free, 60, 30)
	assert.Equal(t, []Range{
		{Start: 540, End: 600},
		{Start: 570, End: 630},
		{Start: 600, End: 660},
	}, slots)
}

func TestSliceIntoSlots_SkipsTooShortRanges(t *testing.T) {
	free := []Range{{Start: 540, End: 570}} // 30 minutes

	slots := SliceIntoSlots(free, 60, 30)
	assert.Empty(t, slots)
}

func TestSliceIntoSlots_AroundExistingSession(t *testing.T) {
	// Staff hours 09:00-17:00 within business hours 08:00-18:00, with an
	// existing session 10:00-11:00. Duration 60, step 30: no emitted slot
	// may overlap the session.
	working, ok := Intersect(Range{Start: 480, End: 1080}, Range{Start: 540, End: 1020})
	require.True(t, ok)

	session := Range{Start: 600, End: 660}
	free := SubtractBlocked(working, []Range{session})
	slots := SliceIntoSlots(free, 60, 30)

	assert.Contains(t, slots, Range{Start: 540, End: 600})  // 09:00-10:00
	assert.Contains(t, slots, Range{Start: 660, End: 720})  // 11:00-12:00
	assert.Contains(t, slots, Range{Start: 690, End: 750})  // 11:30-12:30
	assert.NotContains(t, slots, Range{Start: 570, End: 630}) // 09:30-10:30 overlaps
	assert.NotContains(t, slots, Range{Start: 600, End: 660})

	for _, s := range slots {
		assert.False(t, Overlaps(s, session), "slot %v overlaps session", s)
	}
}

func TestSliceIntoSlots_InvalidParams(t *testing.T) {
	free := []Range{{Start: 540, End: 660}}

	assert.Nil(t, SliceIntoSlots(free, 0, 30))
	assert.Nil(t, SliceIntoSlots(free, 60, 0))
}
