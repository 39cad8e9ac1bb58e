// Package gedcom reads and writes the line-oriented GEDCOM 5.5.1 format.
//
// Parsing yields a Document whose cross references (@I1@, @F1@) are left
// unresolved; linking records to stored entities is the importer's job.
package gedcom

import (
	"fmt"

	"github.com/vikasavnish/heirloom/internal/models"
)

// Document is the staging form of a GEDCOM file.
type Document struct {
	TreeName    string
	Individuals map[string]*Individual
	Families    map[string]*Family
	Diagnostics []Diagnostic

	indiOrder []string
	famOrder  []string
}

// NewDocument returns an empty document.
func NewDocument(treeName string) *Document {
	return &Document{
		TreeName:    treeName,
		Individuals: make(map[string]*Individual),
		Families:    make(map[string]*Family),
	}
}

// AddIndividual registers indi under its ID. It returns false when the ID is
// already taken.
func (d *Document) AddIndividual(indi *Individual) bool {
	if _, ok := d.Individuals[indi.ID]; ok {
		return false
	}
	d.Individuals[indi.ID] = indi
	d.indiOrder = append(d.indiOrder, indi.ID)
	return true
}

// AddFamily registers fam under its ID. It returns false when the ID is
// already taken.
func (d *Document) AddFamily(fam *Family) bool {
	if _, ok := d.Families[fam.ID]; ok {
		return false
	}
	d.Families[fam.ID] = fam
	d.famOrder = append(d.famOrder, fam.ID)
	return true
}

// OrderedIndividuals returns individuals in document order.
func (d *Document) OrderedIndividuals() []*Individual {
	out := make([]*Individual, 0, len(d.indiOrder))
	for _, id := range d.indiOrder {
		out = append(out, d.Individuals[id])
	}
	return out
}

// OrderedFamilies returns families in document order.
func (d *Document) OrderedFamilies() []*Family {
	out := make([]*Family, 0, len(d.famOrder))
	for _, id := range d.famOrder {
		out = append(out, d.Families[id])
	}
	return out
}

// Individual is an INDI record.
type Individual struct {
	ID         string
	GivenName  string
	Surname    string
	Sex        models.Sex
	DeathCause string
	FAMC       []FamilyLink
	FAMS       []string
	Events     []*Event
}

// Event returns the first event of type t, or nil.
func (i *Individual) Event(t models.EventType) *Event {
	for _, ev := range i.Events {
		if ev.Type == t {
			return ev
		}
	}
	return nil
}

// FamilyLink is a FAMC back-reference with its pedigree.
type FamilyLink struct {
	Family   string
	Relation models.ChildRelation
}

// Family is a FAM record.
type Family struct {
	ID       string
	Husband  string
	Wife     string
	Children []string
	Events   []*FamilyEvent
}

// Event returns the family event of type t, or nil.
func (f *Family) Event(t models.FamilyEventType) *FamilyEvent {
	for _, ev := range f.Events {
		if ev.Type == t {
			return ev
		}
	}
	return nil
}

// EventDetail is the DATE/PLAC/NOTE payload shared by all events.
type EventDetail struct {
	Date  string
	Place string
	Note  string
	Year  *int
}

// Event is a person event.
type Event struct {
	Type models.EventType
	EventDetail
}

// FamilyEvent is a family event.
type FamilyEvent struct {
	Type models.FamilyEventType
	EventDetail
}

// Diagnostic reports input the parser recovered from.
type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

// SyntaxError is returned when a document is broken past recovery.
type SyntaxError struct {
	Line   int
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("gedcom: line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Unwrap lets callers classify the failure as malformed input.
func (e *SyntaxError) Unwrap() error {
	return models.ErrMalformedDocument
}

// IndividualXref formats the n-th individual cross reference id.
func IndividualXref(n int) string { return fmt.Sprintf("@I%d@", n) }

// FamilyXref formats the n-th family cross reference id.
func FamilyXref(n int) string { return fmt.Sprintf("@F%d@", n) }
