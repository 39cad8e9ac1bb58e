package gedcom

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/vikasavnish/heirloom/internal/dates"
	"github.com/vikasavnish/heirloom/internal/models"
)

const maxLineLength = 1 << 20

var (
	linePattern    = regexp.MustCompile(`^(\d{1,2})\s+(?:(@[^@\s]+@)\s+)?([A-Za-z0-9_]+)(?:\s(.*))?$`)
	pointerPattern = regexp.MustCompile(`^@[^@\s]+@$`)
)

// node is one tokenized line together with its nested sub-records.
type node struct {
	num      int
	level    int
	xref     string
	tag      string
	value    string
	text     string
	children []*node
}

// first returns the first direct child with tag.
func (n *node) first(tag string) *node {
	for _, c := range n.children {
		if c.tag == tag {
			return c
		}
	}
	return nil
}

// find searches all descendants depth first.
func (n *node) find(tag string) *node {
	for _, c := range n.children {
		if c.tag == tag {
			return c
		}
		if found := c.find(tag); found != nil {
			return found
		}
	}
	return nil
}

// Option configures Parse.
type Option func(*parser)

// WithLogger routes diagnostics to log at warn level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *parser) {
		p.log = log
	}
}

type parser struct {
	log logrus.FieldLogger
	doc *Document
}

// Parse reads a GEDCOM document. Unknown tags are skipped silently and
// recoverable problems are recorded in Document.Diagnostics. A *SyntaxError
// is returned when the record structure itself is broken.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	p := &parser{
		log: logrus.StandardLogger(),
		doc: NewDocument(""),
	}
	for _, opt := range opts {
		opt(p)
	}

	records, err := p.tokenize(r)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		switch rec.tag {
		case tagHead:
			p.head(rec)
		case tagIndi:
			err = p.individual(rec)
		case tagFam:
			err = p.family(rec)
		}
		if err != nil {
			return nil, err
		}
	}
	return p.doc, nil
}

// tokenize splits the input into lines and nests them by level.
func (p *parser) tokenize(r io.Reader) ([]*node, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var (
		records []*node
		stack   []*node
		num     int
	)
	for sc.Scan() {
		num++
		text := sc.Text()
		if num == 1 {
			text = strings.TrimPrefix(text, "\uFEFF")
		}
		text = strings.TrimSpace(norm.NFC.String(text))
		if text == "" {
			continue
		}

		m := linePattern.FindStringSubmatch(text)
		if m == nil {
			if len(stack) == 0 {
				return nil, &SyntaxError{Line: num, Text: text, Reason: "document does not start with a level 0 record"}
			}
			p.diagnose(num, "skipped malformed line %q", text)
			continue
		}

		level, _ := strconv.Atoi(m[1])
		n := &node{
			num:   num,
			level: level,
			xref:  m[2],
			tag:   strings.ToUpper(m[3]),
			value: m[4],
			text:  text,
		}
		switch {
		case len(stack) == 0 && level != 0:
			return nil, &SyntaxError{Line: num, Text: text, Reason: "document does not start with a level 0 record"}
		case level > len(stack):
			return nil, &SyntaxError{
				Line:   num,
				Text:   text,
				Reason: fmt.Sprintf("level %d cannot follow level %d", level, stack[len(stack)-1].level),
			}
		}

		stack = stack[:level]
		if level == 0 {
			records = append(records, n)
		} else {
			parent := stack[level-1]
			parent.children = append(parent.children, n)
		}
		stack = append(stack, n)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "gedcom: read line %d", num+1)
	}
	if len(records) == 0 {
		return nil, &SyntaxError{Line: num, Reason: "document has no records"}
	}
	return records, nil
}

func (p *parser) head(n *node) {
	if t := n.find(tagTree); t != nil {
		p.doc.TreeName = strings.TrimSpace(t.value)
	}
}

func (p *parser) individual(n *node) error {
	if n.xref == "" {
		return &SyntaxError{Line: n.num, Text: n.text, Reason: "INDI record has no cross reference id"}
	}
	indi := &Individual{ID: n.xref, Sex: models.SexUnknown}
	if !p.doc.AddIndividual(indi) {
		return &SyntaxError{Line: n.num, Text: n.text, Reason: "duplicate cross reference id " + n.xref}
	}

	named := false
	for _, c := range n.children {
		switch c.tag {
		case tagName:
			if named {
				p.diagnose(c.num, "%s: additional NAME ignored", indi.ID)
				continue
			}
			named = true
			indi.GivenName, indi.Surname = splitName(c.value)
			if g := c.first(tagGiven); g != nil {
				indi.GivenName = strings.TrimSpace(g.value)
			}
			if s := c.first(tagSurname); s != nil {
				indi.Surname = strings.TrimSpace(s.value)
			}
		case tagSex:
			indi.Sex = models.ParseSex(c.value)
		case tagFamc:
			xref, ok := p.pointer(c)
			if !ok {
				continue
			}
			link := FamilyLink{Family: xref, Relation: models.RelationBiological}
			if pedi := c.first(tagPedi); pedi != nil {
				if rel, ok := pedigrees[strings.ToLower(strings.TrimSpace(pedi.value))]; ok {
					link.Relation = rel
				}
			}
			indi.FAMC = append(indi.FAMC, link)
		case tagFams:
			if xref, ok := p.pointer(c); ok {
				indi.FAMS = append(indi.FAMS, xref)
			}
		case tagCause:
			cause := c.value
			if note := c.first(tagNote); note != nil {
				cause = noteText(note)
			}
			indi.DeathCause = strings.TrimSpace(cause)
		default:
			t, ok := personEventTags[c.tag]
			if !ok {
				continue
			}
			if t.OneTime() && indi.Event(t) != nil {
				p.diagnose(c.num, "%s: duplicate %s ignored, keeping the first", indi.ID, c.tag)
				continue
			}
			indi.Events = append(indi.Events, &Event{Type: t, EventDetail: eventDetail(c)})
		}
	}
	return nil
}

func (p *parser) family(n *node) error {
	if n.xref == "" {
		return &SyntaxError{Line: n.num, Text: n.text, Reason: "FAM record has no cross reference id"}
	}
	fam := &Family{ID: n.xref}
	if !p.doc.AddFamily(fam) {
		return &SyntaxError{Line: n.num, Text: n.text, Reason: "duplicate cross reference id " + n.xref}
	}

	for _, c := range n.children {
		switch c.tag {
		case tagHusb, tagWife:
			xref, ok := p.pointer(c)
			if !ok {
				continue
			}
			slot := &fam.Husband
			if c.tag == tagWife {
				slot = &fam.Wife
			}
			if *slot != "" {
				p.diagnose(c.num, "%s: additional %s ignored", fam.ID, c.tag)
				continue
			}
			*slot = xref
		case tagChil:
			xref, ok := p.pointer(c)
			if !ok {
				continue
			}
			if slices.Contains(fam.Children, xref) {
				p.diagnose(c.num, "%s: child %s listed twice", fam.ID, xref)
				continue
			}
			fam.Children = append(fam.Children, xref)
		default:
			t, ok := familyEventTags[c.tag]
			if !ok {
				continue
			}
			if fam.Event(t) != nil {
				p.diagnose(c.num, "%s: duplicate %s ignored, keeping the first", fam.ID, c.tag)
				continue
			}
			fam.Events = append(fam.Events, &FamilyEvent{Type: t, EventDetail: eventDetail(c)})
		}
	}
	return nil
}

// pointer validates a cross reference value such as "@F2@".
func (p *parser) pointer(n *node) (string, bool) {
	v := strings.TrimSpace(n.value)
	if !pointerPattern.MatchString(v) {
		p.diagnose(n.num, "%s value %q is not a cross reference", n.tag, v)
		return "", false
	}
	return v, true
}

func (p *parser) diagnose(line int, format string, args ...any) {
	d := Diagnostic{Line: line, Message: fmt.Sprintf(format, args...)}
	p.doc.Diagnostics = append(p.doc.Diagnostics, d)
	p.log.WithField("line", line).Warn(d.Message)
}

func eventDetail(n *node) EventDetail {
	var d EventDetail
	for _, c := range n.children {
		switch c.tag {
		case tagDate:
			if d.Date == "" {
				d.Date = strings.TrimSpace(c.value)
			}
		case tagPlace:
			if d.Place == "" {
				d.Place = strings.TrimSpace(c.value)
			}
		case tagNote:
			if d.Note == "" {
				d.Note = noteText(c)
			}
		}
	}
	d.Year = dates.YearPtr(d.Date)
	return d
}

// noteText joins a NOTE value with its CONT and CONC continuation lines.
func noteText(n *node) string {
	var b strings.Builder
	b.WriteString(n.value)
	for _, c := range n.children {
		switch c.tag {
		case tagCont:
			b.WriteString("\n")
			b.WriteString(c.value)
		case tagConc:
			b.WriteString(c.value)
		}
	}
	return b.String()
}

// splitName splits a NAME value of the form "Given /Surname/".
func splitName(value string) (given, surname string) {
	value = strings.TrimSpace(value)
	start := strings.Index(value, "/")
	if start < 0 {
		return value, ""
	}
	rest := value[start+1:]
	end := strings.Index(rest, "/")
	if end < 0 {
		return strings.TrimSpace(value[:start]), strings.TrimSpace(rest)
	}
	given = strings.TrimSpace(value[:start] + " " + rest[end+1:])
	return strings.Join(strings.Fields(given), " "), strings.TrimSpace(rest[:end])
}
