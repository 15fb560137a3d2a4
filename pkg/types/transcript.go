package types

import (
	"fmt"
	"strings"
)

// AsText renders the transcript as plain text, one segment per line.
func (t Transcript) AsText() string {
	var b strings.Builder
	for _, s := range t.Segments {
		line := strings.TrimSpace(s.Text)
		if line == "" {
			continue
		}
		if s.Speaker != "" {
			b.WriteString(s.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// AsSRT renders the transcript in SubRip format.
func (t Transcript) AsSRT() string {
	var b strings.Builder
	for i, s := range t.Segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(s.Start), srtTimestamp(s.Stop), strings.TrimSpace(s.Text))
	}
	return b.String()
}

// AsVTT renders the transcript in WebVTT format.
func (t Transcript) AsVTT() string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, s := range t.Segments {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			vttTimestamp(s.Start), vttTimestamp(s.Stop), strings.TrimSpace(s.Text))
	}
	return b.String()
}

func srtTimestamp(sec float64) string {
	h, m, s, ms := splitClock(sec)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func vttTimestamp(sec float64) string {
	h, m, s, ms := splitClock(sec)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitClock(sec float64) (h, m, s, ms int) {
	if sec < 0 {
		sec = 0
	}
	total := int(sec * 1000)
	ms = total % 1000
	total /= 1000
	s = total % 60
	total /= 60
	m = total % 60
	h = total / 60
	return
}
