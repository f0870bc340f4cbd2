package parser

import (
	"net/url"
	"strings"
)

// Label is the display metadata carried in a link's fragment (or the vmess
// "ps" field): a human-readable name, an optional country tag, and an
// optional telegram channel reference.
type Label struct {
	Name            string
	Country         string
	TelegramChannel *string
	IsTelegram      bool
}

// telegramMarkers are the substrings that mark a name as channel-like.
var telegramMarkers = []string{"telegram", "tel@", "t.me/"}

// ParseLabel percent-decodes a raw label and applies the metadata cascade:
// a trailing "::XX" segment becomes the country tag, ">>" markers are
// stripped, and the telegram classification runs first-match-wins.
//
// The final cascade step flags ANY name containing '@' as a channel. That
// is deliberately over-eager ("user@host" is flagged) and is kept verbatim
// for parity with the subscription feeds this was tuned against.
func ParseLabel(fragment string) Label {
	decoded, err := url.PathUnescape(fragment)
	if err != nil {
		decoded = fragment
	}

	var label Label
	name := decoded
	if i := strings.LastIndex(decoded, "::"); i >= 0 {
		label.Country = strings.TrimSpace(decoded[i+2:])
		name = decoded[:i]
	}

	name = strings.TrimSpace(strings.ReplaceAll(name, ">>", ""))
	label.Name = name

	switch {
	case strings.HasPrefix(name, "@"):
		label.IsTelegram = true
		label.TelegramChannel = &name

	case containsAny(strings.ToLower(name), telegramMarkers):
		label.IsTelegram = true
		label.TelegramChannel = &name

	case strings.Contains(name, "@"):
		channel := name[strings.Index(name, "@"):]
		if i := strings.Index(channel, "::"); i >= 0 {
			channel = channel[:i]
		}
		if i := strings.Index(channel, ":"); i >= 0 {
			channel = channel[:i]
		}
		channel = strings.TrimSpace(channel)
		label.IsTelegram = true
		label.TelegramChannel = &channel
	}

	return label
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
