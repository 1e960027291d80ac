package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ada/core"
)

type runnerMock struct {
	mu   sync.Mutex
	runs int
	err  error
	ran  chan struct{}
}

func (r *runnerMock) Run(context.Context) (Summary, error) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	if r.ran != nil {
		r.ran <- struct{}{}
	}
	return Summary{Tenants: 1}, r.err
}

func (r *runnerMock) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func TestTrigger_checkAndRun(t *testing.T) {
	at := func(day, hour, min int) time.Time {
		return time.Date(2024, time.December, day, hour, min, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		clock    []time.Time
		wantRuns []bool
	}{
		{
			name:     "before time",
			clock:    []time.Time{at(1, 8, 59), at(1, 9, 29)},
			wantRuns: []bool{false, false},
		},
		{
			name:     "on time",
			clock:    []time.Time{at(1, 9, 30)},
			wantRuns: []bool{true},
		},
		{
			name:     "once a day",
			clock:    []time.Time{at(1, 9, 30), at(1, 9, 31), at(1, 9, 45)},
			wantRuns: []bool{true, false, false},
		},
		{
			name:     "late check in the hour",
			clock:    []time.Time{at(1, 9, 58)},
			wantRuns: []bool{true},
		},
		{
			name:     "missed hour",
			clock:    []time.Time{at(1, 10, 0)},
			wantRuns: []bool{false},
		},
		{
			name:     "next day",
			clock:    []time.Time{at(1, 9, 30), at(2, 9, 30)},
			wantRuns: []bool{true, true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(runnerMock)
			trigger := NewTrigger(TriggerConfig{Hour: 9, Minute: 30}, runner, core.NewNopLogger())

			wantCount := 0
			for i, now := range tt.clock {
				now := now
				trigger.NowFunc = func() time.Time { return now }
				assert.Equal(t, tt.wantRuns[i], trigger.checkAndRun(context.Background()), "check at %s", now)
				if tt.wantRuns[i] {
					wantCount++
				}
			}
			assert.Equal(t, wantCount, runner.count())
		})
	}
}

func TestTrigger_checkAndRun_failedRun(t *testing.T) {
	runner := &runnerMock{err: errors.New("db down")}
	trigger := NewTrigger(TriggerConfig{Hour: 9}, runner, core.NewNopLogger())
	trigger.NowFunc = func() time.Time { return time.Date(2024, time.December, 1, 9, 0, 0, 0, time.UTC) }

	assert.True(t, trigger.checkAndRun(context.Background()))
	// a failed run is not retried the same day
	assert.False(t, trigger.checkAndRun(context.Background()))
	assert.Equal(t, 1, runner.count())
}

func TestTrigger_StartStop(t *testing.T) {
	runner := &runnerMock{ran: make(chan struct{}, 1)}
	trigger := NewTrigger(TriggerConfig{Hour: 9, CheckInterval: time.Millisecond}, runner, core.NewNopLogger())
	trigger.NowFunc = func() time.Time { return time.Date(2024, time.December, 1, 9, 0, 0, 0, time.UTC) }

	trigger.Start(context.Background())
	trigger.Start(context.Background()) // no-op

	select {
	case <-runner.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("the job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, trigger.Stop(ctx))
	assert.NoError(t, trigger.Stop(ctx)) // no-op
	assert.Equal(t, 1, runner.count())
}
