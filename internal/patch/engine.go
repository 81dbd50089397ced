// Package patch rescales the growth field of creature descriptor files.
package patch

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// DefaultField is the descriptor element holding weekly creature growth.
const DefaultField = "WeeklyGrowth"

const declaration = `<?xml version="1.0" encoding="UTF-8"?>`

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
	digitsOnly = regexp.MustCompile(`^[0-9]+$`)
	declRe     = regexp.MustCompile(`^\s*<\?xml[^>]*?\?>`)
	encodingRe = regexp.MustCompile(`encoding\s*=\s*["']([^"']*)["']`)
	entityRe   = regexp.MustCompile(`<!ENTITY\s+([A-Za-z_:][-A-Za-z0-9_.:]*)\s+(?:"([^"]*)"|'([^']*)')\s*>`)
)

// Status classifies what happened to one descriptor.
type Status int

const (
	// StatusUnchanged: candidate fields exist but none would change.
	StatusUnchanged Status = iota
	// StatusChanged: at least one field differs after scaling.
	StatusChanged
	// StatusNoField: the document parsed but holds no numeric growth field.
	StatusNoField
	// StatusMalformed: the document could not be parsed.
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusChanged:
		return "changed"
	case StatusNoField:
		return "no field"
	case StatusMalformed:
		return "unparsed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Change records one field whose value moved.
type Change struct {
	Name string
	Old  int64
	New  int64
}

func (c Change) String() string {
	return fmt.Sprintf("%s %d→%d", c.Name, c.Old, c.New)
}

// Result is the outcome for one descriptor file.
type Result struct {
	Path    string
	Status  Status
	Fields  int // numeric fields seen
	Changed int // fields whose value differs
	Sample  *Change
	Err     error // parse error when Status is StatusMalformed
}

// Name returns the descriptor base name without extension.
func (r Result) Name() string {
	return creatureName(r.Path)
}

// Engine scales every occurrence of Field by Factor.
type Engine struct {
	Field  string
	Factor float64
}

// NewEngine returns an Engine for field, rejecting unusable factors.
func NewEngine(field string, factor float64) (Engine, error) {
	if field == "" {
		field = DefaultField
	}
	if err := checkFactor(factor); err != nil {
		return Engine{}, err
	}
	return Engine{Field: field, Factor: factor}, nil
}

// Scale applies the engine factor to one value.
func (e Engine) Scale(old int64) (int64, bool) {
	return Scale(old, e.Factor)
}

// Preview reports what Apply would do without writing.
// The returned error is an I/O failure; parse problems land in Result.
func (e Engine) Preview(path string) (Result, error) {
	res, _, err := e.evaluate(path)
	return res, err
}

// Apply rewrites changed fields in place and reports the outcome.
func (e Engine) Apply(path string) (Result, error) {
	res, out, err := e.evaluate(path)
	if err != nil || res.Status != StatusChanged {
		return res, err
	}

	if err := writeFileAtomic(path, out); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return res, nil
}

// evaluate parses path and returns the result plus the rewritten document
// (nil unless something changed).
func (e Engine) evaluate(path string) (Result, []byte, error) {
	res := Result{Path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		return res, nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	out, err := e.Rewrite(raw, &res)
	if err != nil {
		res.Status = StatusMalformed
		res.Err = err
		return res, nil, nil
	}
	return res, out, nil
}

// fieldSpan is the raw byte range holding one field's text.
type fieldSpan struct {
	start, end int64
	text       []byte // decoded text
	raw        bool   // raw bytes equal the decoded text (no entities or CDATA)
}

// Rewrite scans doc and fills res. When any field changes it returns the
// new document, UTF-8 with a leading declaration; otherwise nil.
func (e Engine) Rewrite(doc []byte, res *Result) ([]byte, error) {
	field := e.Field
	if field == "" {
		field = DefaultField
	}

	doc, err := toUTF8(doc)
	if err != nil {
		return nil, err
	}

	spans, err := scanFields(doc, field)
	if err != nil {
		return nil, err
	}

	name := creatureName(res.Path)

	var (
		out  bytes.Buffer
		last int64
	)
	for _, sp := range spans {
		text := strings.TrimSpace(string(sp.text))
		if !digitsOnly.MatchString(text) {
			continue
		}
		old, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			continue
		}
		res.Fields++

		scaled, ok := e.Scale(old)
		if !ok || scaled == old {
			continue
		}

		res.Changed++
		if res.Sample == nil {
			res.Sample = &Change{Name: name, Old: old, New: scaled}
		}

		out.Write(doc[last:sp.start])
		out.WriteString(replacement(doc[sp.start:sp.end], sp.raw, scaled))
		last = sp.end
	}

	switch {
	case res.Changed > 0:
		res.Status = StatusChanged
	case res.Fields > 0:
		res.Status = StatusUnchanged
	default:
		res.Status = StatusNoField
	}

	if res.Changed == 0 {
		return nil, nil
	}

	out.Write(doc[last:])
	return withDeclaration(out.Bytes()), nil
}

// scanFields tokenises doc and returns the leading text span of every
// element named field. It fails on anything that is not a single
// well-formed document.
func scanFields(doc []byte, field string) ([]fieldSpan, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var (
		spans   []fieldSpan
		pending *fieldSpan
		depth   int
		roots   int
	)
	flush := func() {
		if pending != nil {
			spans = append(spans, *pending)
			pending = nil
		}
	}

	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		end := dec.InputOffset()

		switch t := tok.(type) {
		case xml.CharData:
			if pending == nil {
				continue
			}
			if pending.start < 0 {
				pending.start = start
			}
			pending.end = end
			pending.text = append(pending.text, t...)
			continue
		case xml.StartElement:
			flush()
			if depth == 0 {
				roots++
				if roots > 1 {
					return nil, errors.New("junk after document element")
				}
			}
			depth++
			if t.Name.Space == "" && t.Name.Local == field {
				pending = &fieldSpan{start: -1}
			}
		case xml.EndElement:
			if pending != nil && pending.start < 0 {
				pending = nil
			}
			flush()
			depth--
		default:
			if d, ok := t.(xml.Directive); ok {
				declareEntities(dec, d)
			}
			if pending != nil && pending.start < 0 {
				pending = nil
			}
			flush()
		}
	}
	flush()

	if roots == 0 {
		return nil, errors.New("no element found")
	}

	for i := range spans {
		spans[i].raw = bytes.Equal(doc[spans[i].start:spans[i].end], spans[i].text)
	}
	return spans, nil
}

// declareEntities registers the internal general entities of a DOCTYPE
// so references to them in field text resolve.
func declareEntities(dec *xml.Decoder, d xml.Directive) {
	if !bytes.HasPrefix(bytes.TrimSpace(d), []byte("DOCTYPE")) {
		return
	}
	for _, m := range entityRe.FindAllSubmatch(d, -1) {
		if dec.Entity == nil {
			dec.Entity = make(map[string]string)
		}
		name := string(m[1])
		if _, dup := dec.Entity[name]; dup {
			continue // first declaration wins
		}
		dec.Entity[name] = string(m[2]) + string(m[3])
	}
}

// replacement keeps the whitespace around the digits when the raw text is
// plain; otherwise (entities, CDATA) the whole span becomes the number.
func replacement(raw []byte, plain bool, v int64) string {
	num := strconv.FormatInt(v, 10)
	if !plain {
		return num
	}
	s := string(raw)
	trimmed := strings.TrimLeft(s, " \t\r\n")
	lead := s[:len(s)-len(trimmed)]
	inner := strings.TrimRight(trimmed, " \t\r\n")
	trail := trimmed[len(inner):]
	return lead + num + trail
}

// toUTF8 strips a UTF-8 BOM and transcodes UTF-16 documents (by BOM) and
// documents declared in another charset, rewriting the declaration to UTF-8.
func toUTF8(doc []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(doc, utf16LEBOM):
		return transcode(doc[len(utf16LEBOM):], "utf-16le")
	case bytes.HasPrefix(doc, utf16BEBOM):
		return transcode(doc[len(utf16BEBOM):], "utf-16be")
	}
	doc = bytes.TrimPrefix(doc, utf8BOM)

	loc := declRe.FindIndex(doc)
	if loc == nil {
		return doc, nil
	}
	decl := doc[loc[0]:loc[1]]
	m := encodingRe.FindSubmatchIndex(decl)
	if m == nil {
		return doc, nil
	}
	label := strings.ToLower(strings.TrimSpace(string(decl[m[2]:m[3]])))
	if label == "utf-8" || label == "utf8" || label == "" {
		return doc, nil
	}
	return transcode(doc, label)
}

func transcode(doc []byte, label string) ([]byte, error) {
	r, err := charset.NewReaderLabel(label, bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	converted, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to transcode %s: %w", label, err)
	}

	loc := declRe.FindIndex(converted)
	if loc == nil {
		return converted, nil
	}
	decl := converted[loc[0]:loc[1]]
	if !encodingRe.Match(decl) {
		return converted, nil
	}
	fixed := encodingRe.ReplaceAll(decl, []byte(`encoding="UTF-8"`))

	var buf bytes.Buffer
	buf.Grow(len(converted))
	buf.Write(converted[:loc[0]])
	buf.Write(fixed)
	buf.Write(converted[loc[1]:])
	return buf.Bytes(), nil
}

// withDeclaration prepends the XML declaration when the document has none.
func withDeclaration(doc []byte) []byte {
	if declRe.Match(doc) {
		return doc
	}
	out := make([]byte, 0, len(declaration)+1+len(doc))
	out = append(out, declaration...)
	out = append(out, '\n')
	return append(out, doc...)
}

func creatureName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeFileAtomic replaces path with data via a sibling temp file.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
