// Package codepage holds the single-byte character tables a thermal printer
// can be switched between with ESC t n.
package codepage

import (
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Undefined is the rune stored for byte positions a table does not assign.
const Undefined = '\uFFFD'

// CodePage is an immutable byte<->rune table identified by its ESC t argument.
type CodePage struct {
	ID   int
	Name string

	decode [256]rune
	encode map[rune]byte
}

// Decode returns the character printed for b.
func (cp *CodePage) Decode(b byte) rune {
	return cp.decode[b]
}

// Encode returns the byte that prints r in this codepage.
func (cp *CodePage) Encode(r rune) (byte, bool) {
	if r < 0x80 {
		return byte(r), true
	}
	b, ok := cp.encode[r]
	return b, ok
}

// CanEncode reports whether r has a byte position in this codepage.
func (cp *CodePage) CanEncode(r rune) bool {
	_, ok := cp.Encode(r)
	return ok
}

// DecodeBytes maps every byte of data back to text.
func (cp *CodePage) DecodeBytes(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		sb.WriteRune(cp.decode[b])
	}
	return sb.String()
}

// Table returns a copy of the full byte->rune table.
func (cp *CodePage) Table() [256]rune {
	return cp.decode
}

func newCodePage(id int, name string, upper func(b byte) rune) *CodePage {
	cp := &CodePage{ID: id, Name: name, encode: make(map[rune]byte, 128)}
	for i := 0; i < 256; i++ {
		b := byte(i)
		if b < 0x80 {
			cp.decode[i] = rune(b)
			continue
		}
		r := upper(b)
		cp.decode[i] = r
		if r == Undefined {
			continue
		}
		// first position wins when a table repeats a character
		if _, dup := cp.encode[r]; !dup {
			cp.encode[r] = b
		}
	}
	return cp
}

func fromCharmap(m *charmap.Charmap) func(b byte) rune {
	return func(b byte) rune {
		r := m.DecodeByte(b)
		// C1 control positions are not printable glyphs
		if r >= 0x80 && r < 0xA0 {
			return Undefined
		}
		return r
	}
}

// jisX0201 is the half-width katakana page: 0xA1-0xDF map onto U+FF61-U+FF9F.
func jisX0201(b byte) rune {
	if b >= 0xA1 && b <= 0xDF {
		return rune(0xFF61 + int(b-0xA1))
	}
	return Undefined
}

var (
	byID   = map[int]*CodePage{}
	byName = map[string]*CodePage{}
)

func register(cp *CodePage) {
	byID[cp.ID] = cp
	byName[cp.Name] = cp
}

func init() {
	register(newCodePage(PC437, "CP437", fromCharmap(charmap.CodePage437)))
	register(newCodePage(Katakana, "KATAKANA", jisX0201))
	register(newCodePage(PC850, "CP850", fromCharmap(charmap.CodePage850)))
	register(newCodePage(PC860, "CP860", fromCharmap(charmap.CodePage860)))
	register(newCodePage(PC863, "CP863", fromCharmap(charmap.CodePage863)))
	register(newCodePage(PC865, "CP865", fromCharmap(charmap.CodePage865)))
	register(newCodePage(ISO8859_7, "ISO8859-7", fromCharmap(charmap.ISO8859_7)))
	register(newCodePage(WPC1252, "CP1252", fromCharmap(charmap.Windows1252)))
	register(newCodePage(PC866, "CP866", fromCharmap(charmap.CodePage866)))
	register(newCodePage(PC852, "CP852", fromCharmap(charmap.CodePage852)))
	register(newCodePage(PC858, "CP858", fromCharmap(charmap.CodePage858)))
	register(newCodePage(PC855, "CP855", fromCharmap(charmap.CodePage855)))
	register(newCodePage(PC862, "CP862", fromCharmap(charmap.CodePage862)))
	register(newCodePage(ISO8859_2, "ISO8859-2", fromCharmap(charmap.ISO8859_2)))
	register(newCodePage(ISO8859_15, "ISO8859-15", fromCharmap(charmap.ISO8859_15)))
	register(newCodePage(WPC1250, "CP1250", fromCharmap(charmap.Windows1250)))
	register(newCodePage(WPC1251, "CP1251", fromCharmap(charmap.Windows1251)))
	register(newCodePage(WPC1253, "CP1253", fromCharmap(charmap.Windows1253)))
	register(newCodePage(WPC1254, "CP1254", fromCharmap(charmap.Windows1254)))
	register(newCodePage(WPC1255, "CP1255", fromCharmap(charmap.Windows1255)))
	register(newCodePage(WPC1256, "CP1256", fromCharmap(charmap.Windows1256)))
	register(newCodePage(WPC1257, "CP1257", fromCharmap(charmap.Windows1257)))
	register(newCodePage(WPC1258, "CP1258", fromCharmap(charmap.Windows1258)))
}

// Lookup finds a codepage by its ESC t number.
func Lookup(id int) (*CodePage, bool) {
	cp, ok := byID[id]
	return cp, ok
}

// ByName finds a codepage by name, case-insensitively ("cp437", "CP437").
func ByName(name string) (*CodePage, bool) {
	cp, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
	return cp, ok
}

// All returns every known codepage ordered by id.
func All() []*CodePage {
	out := make([]*CodePage, 0, len(byID))
	for _, cp := range byID {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
