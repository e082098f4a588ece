// Package magicencode converts Unicode text into runs of codepage bytes,
// switching codepages only when the active one cannot print a character.
package magicencode

import (
	"fmt"

	"go.uber.org/zap"

	"escpos-service/internal/codepage"
	"escpos-service/internal/profile"
)

// Policy decides what happens to a character no candidate codepage can print.
type Policy int

const (
	// Substitute writes the placeholder byte in the active codepage.
	Substitute Policy = iota
	// Fail aborts the encode with an EncodingError.
	Fail
)

func (p Policy) String() string {
	switch p {
	case Substitute:
		return "substitute"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy resolves "substitute" or "fail".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "substitute", "":
		return Substitute, nil
	case "fail":
		return Fail, nil
	}
	return 0, fmt.Errorf("unknown fallback policy: %q", s)
}

// DefaultPlaceholder replaces characters that cannot be printed.
const DefaultPlaceholder = '?'

// Options tune an Encoder.
type Options struct {
	// Initial overrides the codepage the cursor starts in.
	Initial *int
	// Pinned disables switching: every character is encoded in this codepage.
	Pinned      *int
	Fallback    Policy
	Placeholder byte
}

// Segment is a run of bytes encoded in one codepage.
type Segment struct {
	CodePage int
	Data     []byte
}

// EncodingError reports a character no candidate codepage can encode.
type EncodingError struct {
	Char   rune
	Offset int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %q (%U) at byte offset %d", e.Char, e.Char, e.Offset)
}

// Encoder holds the active codepage cursor of one composition session.
// It is not safe for concurrent use.
type Encoder struct {
	candidates  []*codepage.CodePage
	start       *codepage.CodePage
	active      *codepage.CodePage
	pinned      bool
	fallback    Policy
	placeholder byte
	logger      *zap.Logger
}

// New builds an Encoder for the profile's codepage preference list.
func New(p *profile.Profile, opts Options) (*Encoder, error) {
	e := &Encoder{fallback: opts.Fallback, placeholder: opts.Placeholder, logger: zap.NewNop()}
	if e.placeholder == 0 {
		e.placeholder = DefaultPlaceholder
	}

	for _, id := range p.CodePages {
		cp, ok := codepage.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("profile %q references unknown codepage %d", p.Name, id)
		}
		e.candidates = append(e.candidates, cp)
	}

	switch {
	case opts.Pinned != nil:
		cp, ok := codepage.Lookup(*opts.Pinned)
		if !ok {
			return nil, fmt.Errorf("unknown pinned codepage %d", *opts.Pinned)
		}
		e.start = cp
		e.pinned = true
	case opts.Initial != nil:
		cp, ok := codepage.Lookup(*opts.Initial)
		if !ok {
			return nil, fmt.Errorf("unknown initial codepage %d", *opts.Initial)
		}
		e.start = cp
	case len(e.candidates) > 0:
		e.start = e.candidates[0]
	default:
		return nil, fmt.Errorf("profile %q has no codepages", p.Name)
	}
	e.active = e.start
	return e, nil
}

// WithLogger attaches a logger for switch tracing.
func (e *Encoder) WithLogger(l *zap.Logger) *Encoder {
	if l != nil {
		e.logger = l
	}
	return e
}

// Active is the codepage the cursor currently sits in.
func (e *Encoder) Active() int {
	return e.active.ID
}

// Reset moves the cursor back to its starting codepage.
func (e *Encoder) Reset() {
	e.active = e.start
}

// Encode splits text into codepage segments. The cursor carries over between
// calls, and is left untouched when Encode returns an error.
func (e *Encoder) Encode(text string) ([]Segment, error) {
	if text == "" {
		return nil, nil
	}

	var (
		segments []Segment
		active   = e.active
		run      = make([]byte, 0, len(text))
	)
	flush := func() {
		if len(run) > 0 {
			segments = append(segments, Segment{CodePage: active.ID, Data: run})
			run = make([]byte, 0, len(text))
		}
	}

	for offset, r := range text {
		// invalid UTF-8 arrives as U+FFFD, which no table encodes
		if b, ok := active.Encode(r); ok {
			run = append(run, b)
			continue
		}

		if !e.pinned {
			if cp, b, ok := e.find(r); ok {
				flush()
				e.logger.Debug("codepage switch",
					zap.String("from", active.Name),
					zap.String("to", cp.Name),
					zap.Int("offset", offset))
				active = cp
				run = append(run, b)
				continue
			}
		}

		if e.fallback == Fail {
			return nil, &EncodingError{Char: r, Offset: offset}
		}
		run = append(run, e.placeholder)
	}
	flush()

	e.active = active
	return segments, nil
}

func (e *Encoder) find(r rune) (*codepage.CodePage, byte, bool) {
	for _, cp := range e.candidates {
		if b, ok := cp.Encode(r); ok {
			return cp, b, true
		}
	}
	return nil, 0, false
}

// CanEncode reports whether codepage id can print r.
func CanEncode(id int, r rune) bool {
	cp, ok := codepage.Lookup(id)
	return ok && cp.CanEncode(r)
}

// Encode is a one-shot helper that encodes text for a profile from its
// preferred starting codepage.
func Encode(p *profile.Profile, text string, opts Options) ([]Segment, error) {
	e, err := New(p, opts)
	if err != nil {
		return nil, err
	}
	return e.Encode(text)
}
