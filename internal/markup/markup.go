// Package markup prints Markdown receipts: headings become large bold text,
// emphasis becomes bold or underline, lists and rules are laid out to the
// printer's column width.
package markup

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"escpos-service/internal/driver/escpos"
)

// Render walks the Markdown document and appends it to c. The composer's style
// is restored to what it was before Render when it returns.
func Render(c *escpos.Composer, source string) error {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	r := &renderer{c: c, src: src, base: c.Style()}
	err := r.blocks(doc, "")
	if rerr := c.SetStyle(r.base); err == nil {
		err = rerr
	}
	return err
}

type renderer struct {
	c    *escpos.Composer
	src  []byte
	base escpos.Style
}

// run is inline text with the emphasis it was written with.
type run struct {
	text      string
	bold      bool
	underline bool
}

func (r *renderer) columns(s escpos.Style) int {
	p := r.c.Profile()
	return s.Columns(p.Columns, p.FontBColumns)
}

func (r *renderer) blocks(parent ast.Node, indent string) error {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if err := r.block(n, indent); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) block(n ast.Node, indent string) error {
	switch n := n.(type) {
	case *ast.Heading:
		s := r.base
		s.Bold = true
		switch n.Level {
		case 1:
			s.Align = escpos.AlignCenter
			s.Width, s.Height = 2, 2
		case 2:
			s.Height = 2
		}
		if err := r.c.SetStyle(s); err != nil {
			return err
		}
		if err := r.c.Text(escpos.Wrap(r.plain(n), r.columns(s))); err != nil {
			return err
		}
		return r.c.SetStyle(r.base)

	case *ast.Paragraph, *ast.TextBlock:
		return r.paragraph(n, indent, indent)

	case *ast.List:
		i := n.Start
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "- "
			if n.IsOrdered() {
				marker = fmt.Sprintf("%d. ", i)
				i++
			}
			if err := r.listItem(item, indent, marker); err != nil {
				return err
			}
		}
		return nil

	case *ast.ThematicBreak:
		return r.c.Textln(strings.Repeat("-", r.columns(r.base)))

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		s := r.base
		s.Font = escpos.FontB
		if err := r.c.SetStyle(s); err != nil {
			return err
		}
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if err := r.c.Text(indent + string(seg.Value(r.src))); err != nil {
				return err
			}
		}
		return r.c.SetStyle(r.base)

	case *ast.Blockquote:
		return r.blocks(n, indent+"| ")

	default:
		return r.blocks(n, indent)
	}
}

func (r *renderer) listItem(item ast.Node, indent, marker string) error {
	pad := strings.Repeat(" ", utf8.RuneCountInString(marker))
	first := true
	for n := item.FirstChild(); n != nil; n = n.NextSibling() {
		switch n.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			lead := indent + pad
			if first {
				lead = indent + marker
			}
			if err := r.paragraph(n, lead, indent+pad); err != nil {
				return err
			}
		default:
			if err := r.block(n, indent+pad); err != nil {
				return err
			}
		}
		first = false
	}
	return nil
}

// paragraph wraps the inline runs of n, switching bold and underline between
// words. The first line starts with lead, continuation lines with indent.
func (r *renderer) paragraph(n ast.Node, lead, indent string) error {
	var runs []run
	r.inline(n, run{}, &runs)

	cols := r.columns(r.base)
	var (
		sb    strings.Builder
		cur   = run{}
		col   = utf8.RuneCountInString(lead)
		start = true
	)
	sb.WriteString(lead)

	flushStyle := func(next run) error {
		if next.bold == cur.bold && next.underline == cur.underline {
			return nil
		}
		if err := r.c.Text(sb.String()); err != nil {
			return err
		}
		sb.Reset()
		s := r.base
		s.Bold = r.base.Bold || next.bold
		if next.underline {
			s.Underline = escpos.UnderlineThin
		}
		cur = next
		return r.c.SetStyle(s)
	}

	for _, rn := range runs {
		for _, word := range strings.Fields(rn.text) {
			n := utf8.RuneCountInString(word)
			switch {
			case start:
			case col+1+n <= cols:
				sb.WriteByte(' ')
				col++
			default:
				sb.WriteString("\n" + indent)
				col = utf8.RuneCountInString(indent)
			}
			if err := flushStyle(rn); err != nil {
				return err
			}
			sb.WriteString(word)
			col += n
			start = false
		}
	}
	sb.WriteByte('\n')
	if err := r.c.Text(sb.String()); err != nil {
		return err
	}
	if cur.bold || cur.underline {
		return r.c.SetStyle(r.base)
	}
	return nil
}

func (r *renderer) inline(n ast.Node, style run, out *[]run) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			*out = append(*out, run{text: string(c.Segment.Value(r.src)), bold: style.bold, underline: style.underline})
		case *ast.String:
			*out = append(*out, run{text: string(c.Value), bold: style.bold, underline: style.underline})
		case *ast.CodeSpan:
			*out = append(*out, run{text: r.plain(c), bold: style.bold, underline: style.underline})
		case *ast.Emphasis:
			s := style
			if c.Level >= 2 {
				s.bold = true
			} else {
				s.underline = true
			}
			r.inline(c, s, out)
		default:
			r.inline(c, style, out)
		}
	}
}

// plain concatenates the text of every inline descendant of n.
func (r *renderer) plain(n ast.Node) string {
	var runs []run
	r.inline(n, run{}, &runs)
	parts := make([]string, 0, len(runs))
	for _, rn := range runs {
		parts = append(parts, rn.text)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
