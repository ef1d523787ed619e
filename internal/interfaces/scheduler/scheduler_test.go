package scheduler

import (
	"testing"
	"time"
)

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		input   string
		want    ScheduleTime
		wantErr bool
	}{
		{input: "09:00", want: ScheduleTime{Hour: 9, Minute: 0}},
		{input: "23:59", want: ScheduleTime{Hour: 23, Minute: 59}},
		{input: "0:5", want: ScheduleTime{Hour: 0, Minute: 5}},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScheduleTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseScheduleTime(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestShouldRunFiresOncePerMinute(t *testing.T) {
	s := &Scheduler{scheduleTimes: []ScheduleTime{{Hour: 9, Minute: 0}}}

	at := time.Date(2026, 3, 10, 9, 0, 12, 0, time.UTC)
	if !s.shouldRun(at) {
		t.Fatal("expected first check at 09:00 to fire")
	}
	if s.shouldRun(at.Add(20 * time.Second)) {
		t.Error("second check in the same minute should not fire")
	}

	nextDay := at.AddDate(0, 0, 1)
	if !s.shouldRun(nextDay) {
		t.Error("same time on the next day should fire again")
	}
}

func TestShouldRunIgnoresOtherTimes(t *testing.T) {
	s := &Scheduler{scheduleTimes: []ScheduleTime{{Hour: 9, Minute: 0}, {Hour: 21, Minute: 30}}}

	if s.shouldRun(time.Date(2026, 3, 10, 10, 15, 0, 0, time.UTC)) {
		t.Error("unscheduled time should not fire")
	}
	if !s.shouldRun(time.Date(2026, 3, 10, 21, 30, 0, 0, time.UTC)) {
		t.Error("second schedule time should fire")
	}
}

func TestNewRequiresScheduleTime(t *testing.T) {
	if _, err := New(Config{WorkerCount: 1, QueueSize: 1}); err == nil {
		t.Error("expected error when no schedule times are configured")
	}
	if _, err := New(Config{ScheduleTimes: []string{"bad"}, WorkerCount: 1, QueueSize: 1}); err == nil {
		t.Error("expected error for unparseable schedule time")
	}
}
