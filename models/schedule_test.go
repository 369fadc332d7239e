package models

import "testing"

func scheduleLines(statuses ...ScheduleLineStatus) []RecognitionScheduleLine {
	lines := make([]RecognitionScheduleLine, 0, len(statuses))
	for _, s := range statuses {
		lines = append(lines, RecognitionScheduleLine{Status: s})
	}
	return lines
}

func TestDeriveScheduleStatus(t *testing.T) {
	cases := []struct {
		name   string
		lines  []RecognitionScheduleLine
		want   ScheduleStatus
		wantOk bool
	}{
		{"any open line keeps the schedule ready",
			scheduleLines(ScheduleLineStatusSettled, ScheduleLineStatusOpen), ScheduleStatusReady, true},
		{"all settled means posted",
			scheduleLines(ScheduleLineStatusSettled, ScheduleLineStatusSettled), ScheduleStatusPosted, true},
		{"settled and reversed mix stays posted",
			scheduleLines(ScheduleLineStatusSettled, ScheduleLineStatusReversed), ScheduleStatusPosted, true},
		{"fully reversed schedule is reversed",
			scheduleLines(ScheduleLineStatusReversed, ScheduleLineStatusReversed), ScheduleStatusReversed, true},
		{"no lines derives nothing", nil, "", false},
	}
	for _, c := range cases {
		got, ok := DeriveScheduleStatus(c.lines)
		if ok != c.wantOk || got != c.want {
			t.Fatalf("%s: got (%s, %v), want (%s, %v)", c.name, got, ok, c.want, c.wantOk)
		}
	}
}
