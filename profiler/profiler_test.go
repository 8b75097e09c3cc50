package profiler

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerRecord(t *testing.T) {
	timer := NewTimer()
	timer.Record("run", 30*time.Millisecond)
	timer.Record("read", 5*time.Millisecond)
	timer.Record("run", 10*time.Millisecond)

	stats := timer.Stats()
	require.Len(t, stats, 2)

	assert.Equal(t, "run", stats[0].Name)
	assert.Equal(t, int64(2), stats[0].Count)
	assert.Equal(t, 40*time.Millisecond, stats[0].Total)
	assert.Equal(t, 10*time.Millisecond, stats[0].Min)
	assert.Equal(t, 30*time.Millisecond, stats[0].Max)
	assert.Equal(t, 20*time.Millisecond, stats[0].Average())

	assert.Equal(t, "read", stats[1].Name)
	assert.Equal(t, 45*time.Millisecond, timer.Total())
}

func TestTimerStartOperation(t *testing.T) {
	timer := NewTimer()
	clock := time.Unix(0, 0)
	timer.now = func() time.Time { return clock }

	done := timer.StartOperation("blob")
	clock = clock.Add(7 * time.Millisecond)
	done()

	stats := timer.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, 7*time.Millisecond, stats[0].Total)
}

func TestTimerConcurrent(t *testing.T) {
	timer := NewTimer()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			timer.Record("run", time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(16), timer.Stats()[0].Count)
}

func TestTimerLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	timer := NewTimer()
	timer.Record("read", time.Millisecond)
	timer.Record("run", 2*time.Millisecond)
	timer.Log(logger)

	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, "read", hook.AllEntries()[0].Data["stage"])
	assert.Equal(t, "run", hook.LastEntry().Data["stage"])
}

func TestStageStatsAverageEmpty(t *testing.T) {
	assert.Zero(t, StageStats{}.Average())
}
