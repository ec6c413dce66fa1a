package discord

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
)

type TriggerKind int

const (
	TriggerNone TriggerKind = iota
	TriggerAway
	TriggerReturn
)

type Trigger struct {
	Kind    TriggerKind
	Minutes int
}

var reAway = regexp.MustCompile(`(?i)(\d+)\s*(?:min|mins|minutes?)\s*away`)

var returnPhrases = []string{
	"back",
	"returned",
	"i'm back",
	"i am back",
	"i have returned",
}

// ParseTrigger detecta "N min away" o una frase de regreso. Si aparecen las
// dos gana el away.
func ParseTrigger(content string) (Trigger, error) {
	if m := reAway.FindStringSubmatch(content); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Trigger{Kind: TriggerAway}, fmt.Errorf("%w: away minutes %q", domain.ErrMalformedInput, m[1])
		}
		return Trigger{Kind: TriggerAway, Minutes: n}, nil
	}

	lower := strings.ToLower(content)
	for _, p := range returnPhrases {
		if strings.Contains(lower, p) {
			return Trigger{Kind: TriggerReturn}, nil
		}
	}
	return Trigger{}, nil
}

// prefixCommand separa "<prefix>awayreport 2025-03-10" en (awayreport, 2025-03-10).
func prefixCommand(content, prefix string) (cmd, arg string, ok bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", "", false
	}
	cmd = strings.ToLower(fields[0])
	if cmd != "awayreport" && cmd != "awaystatus" {
		return "", "", false
	}
	if len(fields) > 1 {
		arg = fields[1]
	}
	return cmd, arg, true
}
