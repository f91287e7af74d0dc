package matchmaking

import (
	"fmt"
	"regexp"
)

var tagPattern = regexp.MustCompile(`^\d+\+\d+$`)

// normalizeQueueTag validates a quick_match time-control tag. Unlike
// room.NormalizeTimeControl, "any" is left as-is here: it names its own
// queue and only collapses to the default once an any-vs-any pairing
// actually happens (handled in popOpponent), not at enqueue time. An
// empty tag is treated as a request for the default time control's queue.
func normalizeQueueTag(tag, defaultTC string) (string, error) {
	if tag == "" {
		tag = defaultTC
	}
	if tag == "any" || tag == "none" {
		return tag, nil
	}
	if !tagPattern.MatchString(tag) {
		return "", fmt.Errorf("invalid time control %q", tag)
	}
	return tag, nil
}
