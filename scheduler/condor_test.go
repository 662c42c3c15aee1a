package scheduler

import (
	"strings"
	"testing"
)

func TestParseTerseSubmit(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{"single proc", "123.0 - 123.0\n", "123"},
		{"proc range", "57.0 - 57.3\n", "57"},
		{"bare cluster", "88\n", "88"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseTerseSubmit(tt.out); got != tt.want {
				t.Errorf("parseTerseSubmit(%q) = %q, want %q", tt.out, got, tt.want)
			}
		})
	}
}

func TestStatusFromCondor(t *testing.T) {
	tests := []struct {
		code string
		want Status
	}{
		{"1", StatusIdle},
		{"2", StatusRunning},
		{"3", StatusRemoved},
		{"4", StatusComplete},
		{"5", StatusHeld},
		{"7", StatusUnknown},
		{"garbage", StatusUnknown},
	}

	for _, tt := range tests {
		if got := statusFromCondor(tt.code); got != tt.want {
			t.Errorf("statusFromCondor(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestAugmentArgs(t *testing.T) {
	c := &CondorClient{}
	d := &Descriptor{Path: "/w/s.jdl", BatchName: "w_s"}

	joined := strings.Join(c.augmentArgs(d), " ")

	for _, want := range []string{
		"-batch-name w_s",
		"+" + SessionMarkerAttr + " = True",
		"executable = /bin/sh",
		"while true; do sleep 600; done",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("augmentArgs missing %q in %q", want, joined)
		}
	}
}
