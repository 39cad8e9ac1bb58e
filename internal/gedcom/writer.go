package gedcom

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vikasavnish/heirloom/internal/models"
)

const (
	sourceName    = "Project Heirloom"
	submitterXref = "@SUBM1@"
	gedcomVersion = "5.5.1"
)

// Encoder writes documents as GEDCOM 5.5.1 text.
type Encoder struct {
	w   *bufio.Writer
	now func() time.Time
	err error
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), now: time.Now}
}

// WithClock overrides the time stamped in the header.
func (e *Encoder) WithClock(now func() time.Time) *Encoder {
	e.now = now
	return e
}

// Encode writes doc followed by a trailer. Records are written in document
// order with the cross reference ids they carry.
func (e *Encoder) Encode(doc *Document) error {
	e.header(doc.TreeName)
	for _, indi := range doc.OrderedIndividuals() {
		e.individual(indi)
	}
	for _, fam := range doc.OrderedFamilies() {
		e.family(fam)
	}
	e.line(0, "", tagTrailer, "")

	if e.err != nil {
		return errors.Wrap(e.err, "gedcom: write")
	}
	return errors.Wrap(e.w.Flush(), "gedcom: flush")
}

func (e *Encoder) header(treeName string) {
	now := e.now()
	e.line(0, "", tagHead, "")
	e.line(1, "", "SUBM", submitterXref)
	e.line(1, "", "SOUR", sourceName)
	if treeName != "" {
		e.line(2, "", tagTree, treeName)
	}
	e.line(1, "", tagDate, strings.ToUpper(now.Format("02 Jan 2006")))
	e.line(2, "", "TIME", now.Format("15:04:05"))
	e.line(1, "", "GEDC", "")
	e.line(2, "", "VERS", gedcomVersion)
	e.line(2, "", "FORM", "LINEAGE-LINKED")
	e.line(1, "", "CHAR", "UTF-8")
	e.line(0, submitterXref, "SUBM", "")
	e.line(1, "", tagName, sourceName+" Member Trees Submitter")
}

func (e *Encoder) individual(indi *Individual) {
	e.line(0, indi.ID, tagIndi, "")
	e.line(1, "", tagName, strings.TrimSpace(fmt.Sprintf("%s /%s/", indi.GivenName, indi.Surname)))
	if indi.GivenName != "" {
		e.line(2, "", tagGiven, indi.GivenName)
	}
	if indi.Surname != "" {
		e.line(2, "", tagSurname, indi.Surname)
	}
	sex := indi.Sex
	if sex == "" {
		sex = models.SexUnknown
	}
	e.line(1, "", tagSex, string(sex))

	for _, ev := range indi.Events {
		tag, ok := personEventTagOf[ev.Type]
		if !ok {
			continue
		}
		e.line(1, "", tag, "")
		e.detail(ev.EventDetail)
	}
	if indi.DeathCause != "" {
		e.line(1, "", tagCause, "")
		e.note(2, indi.DeathCause)
	}
	for _, link := range indi.FAMC {
		e.line(1, "", tagFamc, link.Family)
		if link.Relation != "" && link.Relation != models.RelationBiological {
			e.line(2, "", tagPedi, pedigreeOf[link.Relation])
		}
	}
	for _, fams := range indi.FAMS {
		e.line(1, "", tagFams, fams)
	}
}

func (e *Encoder) family(fam *Family) {
	e.line(0, fam.ID, tagFam, "")
	if fam.Husband != "" {
		e.line(1, "", tagHusb, fam.Husband)
	}
	if fam.Wife != "" {
		e.line(1, "", tagWife, fam.Wife)
	}
	for _, child := range fam.Children {
		e.line(1, "", tagChil, child)
	}
	for _, ev := range fam.Events {
		tag, ok := familyEventTagOf[ev.Type]
		if !ok {
			continue
		}
		e.line(1, "", tag, "")
		e.detail(ev.EventDetail)
	}
}

func (e *Encoder) detail(d EventDetail) {
	if d.Date != "" {
		e.line(2, "", tagDate, d.Date)
	}
	if d.Place != "" {
		e.line(2, "", tagPlace, d.Place)
	}
	if d.Note != "" {
		e.note(2, d.Note)
	}
}

// note writes text as a NOTE with one CONT line per extra line.
func (e *Encoder) note(level int, text string) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	e.line(level, "", tagNote, lines[0])
	for _, l := range lines[1:] {
		e.line(level+1, "", tagCont, l)
	}
}

func (e *Encoder) line(level int, xref, tag, value string) {
	if e.err != nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d ", level)
	if xref != "" {
		b.WriteString(xref)
		b.WriteByte(' ')
	}
	b.WriteString(tag)
	if value != "" {
		b.WriteByte(' ')
		b.WriteString(value)
	}
	b.WriteByte('\n')
	_, e.err = e.w.WriteString(b.String())
}
