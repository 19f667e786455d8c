package procexec

import "strings"

// tailBuffer keeps the most recent lines up to a byte limit.
type tailBuffer struct {
	limit int
	lines []string
	size  int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) WriteLine(line string) {
	if len(line) > b.limit {
		line = line[len(line)-b.limit:]
	}
	b.lines = append(b.lines, line)
	b.size += len(line) + 1
	for b.size > b.limit && len(b.lines) > 1 {
		b.size -= len(b.lines[0]) + 1
		b.lines[0] = ""
		b.lines = b.lines[1:]
	}
}

func (b *tailBuffer) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}
