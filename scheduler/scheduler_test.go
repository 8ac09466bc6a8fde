package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEvery_RunsRepeatedly(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var runs atomic.Int32
	s.Every("tick", 10*time.Millisecond, func() { runs.Add(1) })

	require.Eventually(t, func() bool { return runs.Load() >= 3 },
		time.Second, 5*time.Millisecond)
}

func TestAfter_RunsOnce(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var runs atomic.Int32
	s.After("once", 10*time.Millisecond, func() { runs.Add(1) })

	require.Eventually(t, func() bool { return runs.Load() == 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestAfter_ReplacementResetsTimer(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var first, second atomic.Int32
	s.After("flush", 50*time.Millisecond, func() { first.Add(1) })
	s.After("flush", 20*time.Millisecond, func() { second.Add(1) })

	require.Eventually(t, func() bool { return second.Load() == 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load(), "replaced task must not fire")
}

func TestRemove_StopsTask(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var runs atomic.Int32
	s.Every("tick", 10*time.Millisecond, func() { runs.Add(1) })
	s.Remove("tick")

	before := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, runs.Load())
}

func TestStop_PreventsNewTasks(t *testing.T) {
	s := New(zap.NewNop())
	s.Stop()

	var runs atomic.Int32
	s.Every("late", time.Millisecond, func() { runs.Add(1) })
	s.After("late2", time.Millisecond, func() { runs.Add(1) })

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
	assert.Empty(t, s.Names())
}

func TestNames(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	s.Every("b", time.Hour, func() {})
	s.Every("a", time.Hour, func() {})
	assert.Equal(t, []string{"a", "b"}, s.Names())
}

func TestRun_RecoversPanic(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var after atomic.Int32
	s.After("boom", time.Millisecond, func() { panic("boom") })
	s.After("fine", 10*time.Millisecond, func() { after.Add(1) })

	require.Eventually(t, func() bool { return after.Load() == 1 },
		time.Second, 5*time.Millisecond)
}
