package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noop(context.Context) {}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"08:30", "08:30", false},
		{"8:30", "08:30", false},
		{" 23:59 ", "23:59", false},
		{"00:00", "00:00", false},
		{"24:00", "", true},
		{"12:60", "", true},
		{"1230", "", true},
		{"12:3", "", true},
		{"ab:cd", "", true},
		{"", "", true},
		{"012:30", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeTime(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTime)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestKey(t *testing.T) {
	require.Equal(t, "daily_42", Key(42))
}

func TestSchedule_ReplacesExisting(t *testing.T) {
	s := New(nil, time.Second)

	require.NoError(t, s.Schedule(1, "08:00", "Europe/Minsk", noop))
	require.NoError(t, s.Schedule(1, "08:00", "Europe/Minsk", noop))
	require.Equal(t, 1, s.Len())
	require.Len(t, s.cron.Entries(), 1)

	require.NoError(t, s.Schedule(1, "21:15", "Europe/Minsk", noop))
	require.Equal(t, 1, s.Len())
	require.Len(t, s.cron.Entries(), 1)

	minsk, err := time.LoadLocation("Europe/Minsk")
	require.NoError(t, err)

	from := time.Date(2025, 3, 10, 12, 0, 0, 0, minsk)
	next, ok := s.Next(1, from)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 3, 10, 21, 15, 0, 0, minsk), next.In(minsk))
}

func TestSchedule_FiresInUserTimezone(t *testing.T) {
	s := New(nil, time.Second)
	require.NoError(t, s.Schedule(7, "09:00", "Asia/Tokyo", noop))

	from := time.Date(2025, 6, 1, 0, 30, 0, 0, time.UTC) // 09:30 в Токио
	next, ok := s.Next(7, from)
	require.True(t, ok)

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, tokyo), next.In(tokyo))
}

func TestSchedule_UsersAreIndependent(t *testing.T) {
	s := New(nil, time.Second)

	require.NoError(t, s.Schedule(1, "08:00", "UTC", noop))
	require.NoError(t, s.Schedule(2, "09:00", "UTC", noop))
	require.Equal(t, 2, s.Len())

	s.Cancel(1)
	require.Equal(t, 1, s.Len())

	_, ok := s.Next(1, time.Now())
	require.False(t, ok)
	_, ok = s.Next(2, time.Now())
	require.True(t, ok)
}

func TestSchedule_InvalidInput(t *testing.T) {
	s := New(nil, time.Second)
	require.NoError(t, s.Schedule(1, "08:00", "UTC", noop))

	require.ErrorIs(t, s.Schedule(1, "25:00", "UTC", noop), ErrInvalidTime)
	require.Error(t, s.Schedule(1, "08:00", "Mars/Olympus", noop))

	// Старая задача не тронута.
	require.Equal(t, 1, s.Len())
	next, ok := s.Next(1, time.Date(2025, 1, 1, 7, 0, 0, 0, time.UTC))
	require.True(t, ok)
	require.Equal(t, 8, next.UTC().Hour())
}

func TestCancel_Absent(t *testing.T) {
	s := New(nil, time.Second)
	s.Cancel(99)
	require.Equal(t, 0, s.Len())
}

func TestSchedule_JobGetsDeadline(t *testing.T) {
	s := New(nil, 50*time.Millisecond)

	ran := make(chan bool, 1)
	require.NoError(t, s.Schedule(3, "08:00", "UTC", func(ctx context.Context) {
		_, ok := ctx.Deadline()
		ran <- ok
	}))

	entry := s.cron.Entry(s.entries[Key(3)])
	entry.Job.Run()

	require.True(t, <-ran)
}

func TestStartStop(t *testing.T) {
	s := New(nil, time.Second)
	require.NoError(t, s.Schedule(1, "08:00", "UTC", noop))

	s.Start()
	require.NoError(t, s.Schedule(1, "09:00", "UTC", noop))
	require.Equal(t, 1, s.Len())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
