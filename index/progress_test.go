package index

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10)

	tracker.Start(100)
	tracker.Increment(25)
	tracker.Increment(25)
	tracker.Increment(50)

	assert.Equal(t, 100, tracker.Current())
	output := buf.String()
	assert.Contains(t, output, "100/100", "should show completion")
	assert.Contains(t, output, "100.0%", "should show 100%")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 1)

	tracker.Start(3)
	tracker.Increment(10)
	assert.Equal(t, 3, tracker.Current())
}

func TestProgressTracker_Interval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 50)

	tracker.Start(100)
	tracker.Increment(10)
	assert.Empty(t, buf.String(), "below interval should not report")

	tracker.Increment(40)
	assert.Contains(t, buf.String(), "50/100")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10)

	tracker.Start(100)
	tracker.Increment(75)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "100/100", "finish should set to total")
	assert.True(t, strings.HasSuffix(output, "\n"), "finish should print newline")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 1)

	tracker.Increment(5)
	tracker.Finish()
	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_Nil(t *testing.T) {
	var tracker *ProgressTracker
	tracker.Start(10)
	tracker.Increment(1)
	tracker.Finish()
	assert.Zero(t, tracker.Current())
}
