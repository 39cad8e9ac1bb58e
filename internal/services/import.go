package services

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vikasavnish/heirloom/internal/gedcom"
	"github.com/vikasavnish/heirloom/internal/models"
)

const importBatchSize = 200

// stagedFamily is a FAM record after cross references have been checked and
// back-references folded in.
type stagedFamily struct {
	xref     string
	husband  string
	wife     string
	children []stagedChild
	events   []*gedcom.FamilyEvent
}

type stagedChild struct {
	xref     string
	relation models.ChildRelation
}

func (f *stagedFamily) child(xref string) *stagedChild {
	for i := range f.children {
		if f.children[i].xref == xref {
			return &f.children[i]
		}
	}
	return nil
}

// importer turns a parsed document into rows of one tree. Records are
// staged and resolved in memory first so that forward references need no
// special ordering; only then is anything written.
type importer struct {
	tx     *gorm.DB
	tree   *models.Tree
	doc    *gedcom.Document
	log    logrus.FieldLogger
	people map[string]uint
}

func newImporter(tx *gorm.DB, tree *models.Tree, doc *gedcom.Document, log logrus.FieldLogger) *importer {
	return &importer{
		tx:     tx,
		tree:   tree,
		doc:    doc,
		log:    log,
		people: make(map[string]uint, len(doc.Individuals)),
	}
}

func (im *importer) run(res *ImportResult) error {
	fams, err := im.stage()
	if err != nil {
		return err
	}
	if err := im.createPeople(res); err != nil {
		return err
	}
	return im.createFamilies(fams, res)
}

func (im *importer) note(format string, args ...any) {
	d := gedcom.Diagnostic{Message: fmt.Sprintf(format, args...)}
	im.doc.Diagnostics = append(im.doc.Diagnostics, d)
	im.log.Warn(d.Message)
}

func (im *importer) unresolved(from, xref string) error {
	return models.ErrUnresolvedXref.Detail("%s refers to %s", from, xref)
}

// stage resolves every cross reference and normalises the family list.
func (im *importer) stage() ([]*stagedFamily, error) {
	byXref := make(map[string]*stagedFamily, len(im.doc.Families))
	var order []*stagedFamily

	for _, fam := range im.doc.OrderedFamilies() {
		refs := append([]string{fam.Husband, fam.Wife}, fam.Children...)
		for _, ref := range refs {
			if ref != "" && im.doc.Individuals[ref] == nil {
				return nil, im.unresolved(fam.ID, ref)
			}
		}
		sf := &stagedFamily{xref: fam.ID, husband: fam.Husband, wife: fam.Wife, events: fam.Events}
		for _, c := range fam.Children {
			sf.children = append(sf.children, stagedChild{xref: c, relation: models.RelationBiological})
		}
		byXref[fam.ID] = sf
		order = append(order, sf)
	}

	for _, indi := range im.doc.OrderedIndividuals() {
		for _, link := range indi.FAMC {
			sf := byXref[link.Family]
			if sf == nil {
				return nil, im.unresolved(indi.ID, link.Family)
			}
			if c := sf.child(indi.ID); c != nil {
				c.relation = link.Relation
				continue
			}
			sf.children = append(sf.children, stagedChild{xref: indi.ID, relation: link.Relation})
		}
		for _, ref := range indi.FAMS {
			sf := byXref[ref]
			if sf == nil {
				return nil, im.unresolved(indi.ID, ref)
			}
			if sf.husband == indi.ID || sf.wife == indi.ID {
				continue
			}
			switch {
			case sf.husband == "" && indi.Sex != models.SexFemale:
				sf.husband = indi.ID
			case sf.wife == "" && indi.Sex != models.SexMale:
				sf.wife = indi.ID
			default:
				im.note("%s: spouse link to %s ignored, both parent slots are taken", indi.ID, ref)
			}
		}
	}

	return im.normalise(order), nil
}

// normalise merges families that repeat a pair of parents, keeps only the
// first family a person is a child of, and drops families left empty.
func (im *importer) normalise(order []*stagedFamily) []*stagedFamily {
	type pair struct{ a, b string }
	seen := make(map[pair]*stagedFamily)
	var merged []*stagedFamily
	for _, sf := range order {
		if sf.husband == "" && sf.wife == "" {
			merged = append(merged, sf)
			continue
		}
		key := pair{sf.husband, sf.wife}
		if key.a > key.b {
			key = pair{key.b, key.a}
		}
		into, ok := seen[key]
		if !ok {
			seen[key] = sf
			merged = append(merged, sf)
			continue
		}
		im.note("%s merged into %s, they record the same parents", sf.xref, into.xref)
		for _, c := range sf.children {
			if into.child(c.xref) == nil {
				into.children = append(into.children, c)
			}
		}
		for _, ev := range sf.events {
			if !slices.ContainsFunc(into.events, func(e *gedcom.FamilyEvent) bool { return e.Type == ev.Type }) {
				into.events = append(into.events, ev)
			}
		}
	}

	childOf := make(map[string]string)
	out := merged[:0]
	for _, sf := range merged {
		kept := sf.children[:0]
		for _, c := range sf.children {
			if first, ok := childOf[c.xref]; ok {
				im.note("%s: child of %s dropped, already a child of %s", c.xref, sf.xref, first)
				continue
			}
			childOf[c.xref] = sf.xref
			kept = append(kept, c)
		}
		sf.children = kept

		if sf.husband == "" && sf.wife == "" && len(sf.children) == 0 {
			im.note("%s dropped, it has neither parents nor children", sf.xref)
			continue
		}
		out = append(out, sf)
	}
	return out
}

func (im *importer) createPeople(res *ImportResult) error {
	indis := im.doc.OrderedIndividuals()
	people := make([]models.Person, 0, len(indis))
	for _, indi := range indis {
		p := models.Person{
			TreeID:     im.tree.ID,
			ExternalID: strings.Trim(indi.ID, "@"),
			FirstName:  indi.GivenName,
			LastName:   indi.Surname,
			Sex:        indi.Sex,
			DeathCause: indi.DeathCause,
		}
		if strings.TrimSpace(p.FirstName) == "" && strings.TrimSpace(p.LastName) == "" {
			im.note("%s has no name, stored as Unknown", indi.ID)
			p.FirstName = "Unknown"
		}
		people = append(people, p)
	}
	if len(people) == 0 {
		return nil
	}
	if err := im.tx.CreateInBatches(&people, importBatchSize).Error; err != nil {
		return errors.Wrap(err, "create people")
	}

	var events []models.Event
	for i, indi := range indis {
		im.people[indi.ID] = people[i].ID
		for _, ev := range indi.Events {
			events = append(events, models.Event{
				PersonID:    people[i].ID,
				Type:        ev.Type,
				Date:        ev.Date,
				Place:       ev.Place,
				Description: ev.Note,
			})
		}
	}
	if len(events) > 0 {
		if err := im.tx.CreateInBatches(&events, importBatchSize).Error; err != nil {
			return errors.Wrap(err, "create events")
		}
	}

	res.People = len(people)
	res.Events = len(events)
	return nil
}

func (im *importer) slot(xref string) *uint {
	if xref == "" {
		return nil
	}
	return ptr(im.people[xref])
}

func (im *importer) createFamilies(staged []*stagedFamily, res *ImportResult) error {
	if len(staged) == 0 {
		return nil
	}
	fams := make([]models.Family, 0, len(staged))
	for _, sf := range staged {
		fams = append(fams, models.Family{
			TreeID:     im.tree.ID,
			ExternalID: strings.Trim(sf.xref, "@"),
			HusbandID:  im.slot(sf.husband),
			WifeID:     im.slot(sf.wife),
		})
	}
	if err := im.tx.CreateInBatches(&fams, importBatchSize).Error; err != nil {
		return errors.Wrap(err, "create families")
	}

	var (
		links  []models.Child
		events []models.FamilyEvent
	)
	for i, sf := range staged {
		for _, c := range sf.children {
			links = append(links, models.Child{FamilyID: fams[i].ID, PersonID: im.people[c.xref], Relation: c.relation})
		}
		for _, ev := range sf.events {
			events = append(events, models.FamilyEvent{
				FamilyID:    fams[i].ID,
				Type:        ev.Type,
				Date:        ev.Date,
				Place:       ev.Place,
				Description: ev.Note,
			})
		}
	}
	if len(links) > 0 {
		if err := im.tx.CreateInBatches(&links, importBatchSize).Error; err != nil {
			return errors.Wrap(err, "create child links")
		}
	}
	if len(events) > 0 {
		if err := im.tx.CreateInBatches(&events, importBatchSize).Error; err != nil {
			return errors.Wrap(err, "create family events")
		}
	}

	res.Families = len(fams)
	return nil
}
