package escpos

import (
	"strings"
	"unicode/utf8"
)

// Wrap breaks s into lines of at most columns characters, splitting on spaces
// and hard-breaking words that are longer than a line. Existing line breaks are
// kept and every line ends with LF.
func Wrap(s string, columns int) string {
	if columns < 1 {
		columns = 1
	}
	var sb strings.Builder
	for _, para := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		line := 0
		for _, word := range strings.Fields(para) {
			for utf8.RuneCountInString(word) > columns {
				if line > 0 {
					sb.WriteByte('\n')
					line = 0
				}
				head, tail := splitRunes(word, columns)
				sb.WriteString(head)
				sb.WriteByte('\n')
				word = tail
			}
			n := utf8.RuneCountInString(word)
			if n == 0 {
				continue
			}
			switch {
			case line == 0:
			case line+1+n <= columns:
				sb.WriteByte(' ')
				line++
			default:
				sb.WriteByte('\n')
				line = 0
			}
			sb.WriteString(word)
			line += n
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func splitRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}

// PadColumns lays out left and right text on one line of width columns,
// truncating left with "..." when both do not fit.
func PadColumns(left, right string, columns int) string {
	l, r := utf8.RuneCountInString(left), utf8.RuneCountInString(right)
	if l+r+1 > columns {
		keep := columns - r - 1
		if keep < 4 {
			return left + " " + right
		}
		head, _ := splitRunes(left, keep-3)
		left = head + "..."
		l = keep
	}
	return left + strings.Repeat(" ", columns-l-r) + right
}
