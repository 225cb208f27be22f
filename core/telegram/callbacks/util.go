package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits Telebot's "\f<unique>|<payload>" encoding.
// Raw callback data without the "\f" marker is returned whole as unique.
func ParseCallbackData(data string) (string, string) {
	raw, encoded := strings.CutPrefix(data, "\f")
	if !encoded {
		return strings.TrimSpace(data), ""
	}
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// Data returns the trigger identifier of the callback in c, or "" when the
// update carries no callback.
func Data(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Unique
	}
	unique, _ := ParseCallbackData(cb.Data)
	return unique
}

// SuffixID parses triggers shaped "<prefix><digits>" and returns the id.
// Signs, spaces and empty suffixes are rejected.
func SuffixID(data, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// WithID renders the trigger for prefix and id, the inverse of SuffixID.
func WithID(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}
