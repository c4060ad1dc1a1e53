package avatar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestSweeper_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	clock := newFakeClock()
	c := NewCache(Options{Now: clock.Now})
	c.Put("old", Avatar{URL: "x"}, time.Minute)
	clock.Advance(time.Hour)

	s := NewSweeper(c, time.Second)
	s.Start()
	assert.Eventually(t, func() bool { return c.Len() == 0 }, 5*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestNewSweeper_DefaultInterval(t *testing.T) {
	s := NewSweeper(NewCache(Options{}), 0)
	assert.Equal(t, DefaultSweepInterval, s.interval)
}

func TestSweeper_StartTwiceSchedulesOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewSweeper(NewCache(Options{}), time.Hour)
	s.Start()
	s.Start()
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}
