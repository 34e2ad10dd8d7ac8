package importer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/vecport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, core.CollectionChunks, 100, 10)

	tracker.Start()
	tracker.Increment(10)

	output := buf.String()
	assert.Contains(t, output, "chunks:", "output should be labeled with the collection")
	assert.Contains(t, output, "10/100", "output should show progress")
	assert.Contains(t, output, "10.0%", "output should show percentage")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, core.CollectionEmbeddings, 100, 10)

	tracker.Start()
	tracker.Increment(42)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "100/100", "finish should report completion")
	assert.Contains(t, output, "100.0%", "finish should show 100%")
	assert.True(t, strings.HasSuffix(output, "\n"), "finish should end with newline")
}

func TestProgressTracker_FinishWithinClockResolution(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, core.CollectionChunks, 100, 10)

	tracker.Start()
	// Simulate a run completing before the clock advances.
	tracker.startTime = time.Now().Add(time.Second)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "100/100")
	assert.NotContains(t, output, "Inf", "rate must stay finite when no time has elapsed")
	assert.NotContains(t, output, "NaN")
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, core.CollectionChunks, 0, 10)

	tracker.Start()
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "0/0", "should handle zero total gracefully")
}

func TestProgressTracker_IncrementBeyondTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, core.CollectionChunks, 10, 1)

	tracker.Start()
	tracker.Increment(15)

	output := buf.String()
	assert.Contains(t, output, "10/10", "current should be clamped to total")
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, core.CollectionChunks, 100, 25)

	tracker.Start()

	tracker.Increment(10)
	assert.Empty(t, buf.String(), "should not report below interval")

	tracker.Increment(20)
	assert.Contains(t, buf.String(), "30/100", "should report once interval crossed")

	before := buf.Len()
	tracker.Increment(10)
	assert.Equal(t, before, buf.Len(), "should not report again until next interval")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, core.CollectionChunks, 100, 10)

	tracker.Increment(50)
	tracker.Finish()

	assert.Empty(t, buf.String(), "should produce no output before Start")
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}

func TestProgressTracker_Elapsed(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, core.CollectionChunks, 100, 10)

	tracker.Start()
	time.Sleep(20 * time.Millisecond)

	elapsed := tracker.Elapsed()
	require.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}
