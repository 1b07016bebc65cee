package watchlist

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxLen    = 280
	DefaultSeparator = " | "
)

// Formatter renders a Diff as one or more posts of at most MaxLen characters.
//
// Length is measured in runes, which is not exactly what the platforms count.
// Telegram limits messages to 4096 UTF-16 code units, so characters outside
// the Basic Multilingual Plane (most emoji) take two. X weights CJK and emoji
// as two against its 280 limit. Latin-script names fit either way; a post
// heavy in such characters can still be rejected by the platform, which shows
// up as a PublishError for that chunk.
type Formatter struct {
	MaxLen    int
	Separator string
}

func (f Formatter) maxLen() int {
	if f.MaxLen <= 0 {
		return DefaultMaxLen
	}
	return f.MaxLen
}

func (f Formatter) separator() string {
	if f.Separator == "" {
		return DefaultSeparator
	}
	return f.Separator
}

// Format returns the posts for d, or nil when there is nothing to say.
func (f Formatter) Format(d Diff) []string {
	if d.Empty() {
		return nil
	}
	return f.Chunk(f.Summary(d))
}

// Summary builds the full message: one line per source, additions first,
// joined by the separator.
//
//	OFAC added: A, B and C | BIS removed: D
func (f Formatter) Summary(d Diff) string {
	lines := make([]string, 0, len(d.Added)+len(d.Removed))
	for _, src := range d.AddedSources() {
		lines = append(lines, sourceLine(src, "added", d.Added[src]))
	}
	for _, src := range d.RemovedSources() {
		lines = append(lines, sourceLine(src, "removed", d.Removed[src]))
	}
	return strings.Join(lines, f.separator())
}

func sourceLine(source, action string, names []string) string {
	return source + " " + action + ": " + joinNames(names)
}

// joinNames joins with ", " and puts " and " before the last name.
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

// Chunk splits msg on whitespace into pieces of at most MaxLen runes, packing
// words greedily. Runs of whitespace collapse to a single space. A word longer
// than MaxLen becomes a chunk of its own.
func (f Formatter) Chunk(msg string) []string {
	limit := f.maxLen()
	words := strings.Fields(msg)
	if len(words) == 0 {
		return nil
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		switch {
		case curLen == 0:
			cur.WriteString(w)
			curLen = wl
		case curLen+1+wl <= limit:
			cur.WriteByte(' ')
			cur.WriteString(w)
			curLen += 1 + wl
		default:
			flush()
			cur.WriteString(w)
			curLen = wl
		}
		if curLen > limit {
			// oversized word stands alone
			flush()
		}
	}
	flush()
	return chunks
}
