package pipeline

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/stage"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name     string
		stage    int
		max      int
		elapsed  time.Duration
		duration time.Duration
		want     float64
	}{
		{"before first stage", 0, 6, 0, 10 * time.Second, 0},
		{"start of first stage", 1, 6, 0, 10 * time.Second, 0},
		{"halfway through stage four of six", 4, 6, 5 * time.Second, 10 * time.Second, 58.333333},
		{"elapsed past duration is clamped", 2, 4, 20 * time.Second, 10 * time.Second, 50},
		{"unknown duration", 3, 4, 5 * time.Second, 0, 50},
		{"last stage at full duration", 3, 3, 10 * time.Second, 10 * time.Second, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percent(tt.stage, tt.max, tt.elapsed, tt.duration), 0.001)
		})
	}
}

func TestPercent_NeverReachesHundredWhileRunning(t *testing.T) {
	assert.Less(t, Percent(3, 3, 10*time.Second, 10*time.Second), 100.0)
	assert.Less(t, Percent(3, 3, 30*time.Second, 10*time.Second), 100.0)
	assert.Less(t, Percent(7, 7, 10*time.Second, 10*time.Second-time.Nanosecond), 100.0)
}

func TestSnapshot_PercentIsMonotonic(t *testing.T) {
	s := newSnapshot()
	duration := 60 * time.Second
	s.markRunning(3)

	last := s.info(duration).PercentComplete
	check := func() {
		t.Helper()
		p := s.info(duration).PercentComplete
		assert.GreaterOrEqual(t, p, last)
		last = p
	}

	for n := 1; n <= 3; n++ {
		s.beginStage(n, stage.KindEncoding)
		check()
		for _, sec := range []int{10, 30, 59, 75} {
			s.ApplyTelemetry(Telemetry{Bitrate: 100, Elapsed: time.Duration(sec) * time.Second}, nil)
			check()
		}
	}
	assert.Less(t, last, 100.0)
	s.complete(duration)
	check()
	assert.Equal(t, 100.0, last)
}

func TestSnapshot_CompleteIsExactlyHundred(t *testing.T) {
	s := newSnapshot()
	s.markRunning(7)
	s.beginStage(7, stage.KindPackaging)
	s.ApplyTelemetry(Telemetry{Elapsed: 3 * time.Second}, nil)

	s.complete(9 * time.Second)
	info := s.info(9 * time.Second)
	assert.Equal(t, 100.0, info.PercentComplete)
	assert.Equal(t, StateCompleted, info.State)
	assert.NotNil(t, info.FinishedAt)
}

func TestSnapshot_DetailRequiresBitrate(t *testing.T) {
	s := newSnapshot()
	s.markRunning(1)
	s.beginStage(1, stage.KindEncoding)

	s.ApplyTelemetry(Telemetry{Frame: 3, Elapsed: time.Second}, []string{"hello"})
	info := s.info(time.Minute)
	assert.Nil(t, info.Detail)
	assert.Equal(t, []string{"hello"}, info.Logs.Stdout)
	assert.Equal(t, "encoding", info.StageKind)

	s.ApplyTelemetry(Telemetry{Frame: 4, Bitrate: 64, TotalSize: 9, Elapsed: 2 * time.Second}, nil)
	info = s.info(time.Minute)
	assert.Equal(t, &Detail{Frame: 4, Bitrate: 64, TotalSize: 9, Time: 2 * time.Second, Length: time.Minute}, info.Detail)
}

func TestSnapshot_BeginStageResetsTelemetry(t *testing.T) {
	s := newSnapshot()
	s.markRunning(2)
	s.beginStage(1, stage.KindEncoding)
	s.ApplyTelemetry(Telemetry{Bitrate: 100, Elapsed: 9 * time.Second}, nil)

	s.beginStage(2, stage.KindFragmenting)
	info := s.info(10 * time.Second)
	assert.Nil(t, info.Detail)
	assert.Equal(t, 50.0, info.PercentComplete)
}

func TestSnapshot_StopFreezesState(t *testing.T) {
	s := newSnapshot()
	s.markRunning(2)
	s.beginStage(1, stage.KindEncoding)
	s.setPID(42)
	s.appendStderr("boom")

	s.stop(StateFailed, errors.New("exit status 1"))
	info := s.info(time.Second)
	assert.Equal(t, StateFailed, info.State)
	assert.Equal(t, "exit status 1", info.Error)
	assert.Equal(t, []string{"boom"}, info.Logs.Stderr)
	assert.Equal(t, 0, s.currentPID())
	assert.True(t, info.State.IsTerminal())
	assert.False(t, StateRunning.IsTerminal())
}

func TestDetail_MarshalsSeconds(t *testing.T) {
	data, err := json.Marshal(Detail{Frame: 1, Bitrate: 2.5, Time: 1500 * time.Millisecond, Length: time.Minute})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"frame":1,"fps":0,"bitrate":2.5,"total_size":0,"time":1.5,"length":60}`, string(data))
}
