package discord

import (
	"errors"
	"testing"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
)

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		in      string
		kind    TriggerKind
		minutes int
		wantErr bool
	}{
		{"15 min away", TriggerAway, 15, false},
		{"going 10mins away for lunch", TriggerAway, 10, false},
		{"brb 5 Minutes AWAY", TriggerAway, 5, false},
		{"1 minute away", TriggerAway, 1, false},
		{"I'm back", TriggerReturn, 0, false},
		{"ok I have RETURNED", TriggerReturn, 0, false},
		{"back from 10 min away break", TriggerAway, 10, false},
		{"hello there", TriggerNone, 0, false},
		{"10 minutes", TriggerNone, 0, false},
		{"0 min away", TriggerAway, 0, true},
		{"99999999999999999999 min away", TriggerAway, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTrigger(tt.in)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrMalformedInput) {
					t.Fatalf("err = %v, want ErrMalformedInput", err)
				}
			} else if err != nil {
				t.Fatalf("ParseTrigger() error: %v", err)
			}
			if got.Kind != tt.kind || got.Minutes != tt.minutes {
				t.Errorf("ParseTrigger(%q) = %+v, want kind %d minutes %d", tt.in, got, tt.kind, tt.minutes)
			}
		})
	}
}

func TestPrefixCommand(t *testing.T) {
	tests := []struct {
		in, prefix string
		cmd, arg   string
		ok         bool
	}{
		{"!awayreport", "!", "awayreport", "", true},
		{"!awayreport 2025-03-10", "!", "awayreport", "2025-03-10", true},
		{"  !AwayStatus ", "!", "awaystatus", "", true},
		{"?awaystatus", "!", "", "", false},
		{"!kick someone", "!", "", "", false},
		{"!", "!", "", "", false},
		{"$$awayreport", "$$", "awayreport", "", true},
	}
	for _, tt := range tests {
		cmd, arg, ok := prefixCommand(tt.in, tt.prefix)
		if cmd != tt.cmd || arg != tt.arg || ok != tt.ok {
			t.Errorf("prefixCommand(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.in, cmd, arg, ok, tt.cmd, tt.arg, tt.ok)
		}
	}
}
