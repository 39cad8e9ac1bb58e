package services

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vikasavnish/heirloom/internal/models"
)

// graph holds the lookups and primitive edits every mutation is built from.
// All reads and writes go through the same transaction.
type graph struct {
	tx *gorm.DB
}

func ptr(id uint) *uint {
	return &id
}

func (g *graph) person(id uint) (*models.Person, error) {
	var p models.Person
	if err := g.tx.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrPersonNotFound.Detail("id %d", id)
		}
		return nil, errors.Wrapf(err, "load person %d", id)
	}
	return &p, nil
}

func (g *graph) family(id uint) (*models.Family, error) {
	var f models.Family
	if err := g.tx.First(&f, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrFamilyNotFound.Detail("id %d", id)
		}
		return nil, errors.Wrapf(err, "load family %d", id)
	}
	return &f, nil
}

// resolve turns ref into a candidate without writing anything.
func (g *graph) resolve(treeID uint, ref PersonRef, defaultSex models.Sex) (*candidate, error) {
	switch {
	case ref.New != nil && ref.ExistingID != 0:
		return nil, models.ErrInvalidPerson.Detail("choose either an existing person or a new one")
	case ref.New != nil:
		return newCandidate(treeID, ref.New, defaultSex)
	case ref.ExistingID == 0:
		return nil, models.ErrInvalidPerson.Detail("no person selected")
	}

	p, err := g.person(ref.ExistingID)
	if err != nil {
		return nil, err
	}
	if p.TreeID != treeID {
		return nil, models.ErrCrossTreeFamily
	}
	span, err := g.lifespan(p.ID)
	if err != nil {
		return nil, err
	}
	return &candidate{person: p, birth: span.Birth, death: span.Death}, nil
}

// materialize stores a new candidate with its birth and death events.
func (g *graph) materialize(c *candidate) (*models.Person, error) {
	if !c.isNew() {
		return c.person, nil
	}
	if err := g.tx.Create(c.person).Error; err != nil {
		return nil, err
	}
	for _, ev := range []models.Event{
		{Type: models.EventBirth, Date: c.input.BirthDate},
		{Type: models.EventDeath, Date: c.input.DeathDate},
	} {
		if ev.Date == "" {
			continue
		}
		ev.PersonID = c.person.ID
		if err := g.tx.Create(&ev).Error; err != nil {
			return nil, err
		}
	}
	return c.person, nil
}

// parentLink returns the child link of personID, or nil when the person has
// no recorded parents.
func (g *graph) parentLink(personID uint) (*models.Child, error) {
	var links []models.Child
	if err := g.tx.Where("person_id = ?", personID).Limit(2).Find(&links).Error; err != nil {
		return nil, errors.Wrapf(err, "load parent link of person %d", personID)
	}
	switch len(links) {
	case 0:
		return nil, nil
	case 1:
		return &links[0], nil
	default:
		return nil, models.ErrMultipleParentFamilies.Detail("person %d", personID)
	}
}

// parentFamily returns the child link of personID and the family it points at.
func (g *graph) parentFamily(personID uint) (*models.Child, *models.Family, error) {
	link, err := g.parentLink(personID)
	if err != nil || link == nil {
		return nil, nil, err
	}
	fam, err := g.family(link.FamilyID)
	if err != nil {
		return nil, nil, err
	}
	return link, fam, nil
}

// familyWith finds the family with exactly this husband and wife, where nil
// means an empty slot.
func (g *graph) familyWith(treeID uint, husband, wife *uint) (*models.Family, error) {
	q := g.tx.Where("tree_id = ?", treeID)
	if husband == nil {
		q = q.Where("husband_id IS NULL")
	} else {
		q = q.Where("husband_id = ?", *husband)
	}
	if wife == nil {
		q = q.Where("wife_id IS NULL")
	} else {
		q = q.Where("wife_id = ?", *wife)
	}

	var fams []models.Family
	if err := q.Order("id").Limit(1).Find(&fams).Error; err != nil {
		return nil, errors.Wrap(err, "find family")
	}
	if len(fams) == 0 {
		return nil, nil
	}
	return &fams[0], nil
}

// pairFamily finds the family of an unordered pair of parents. With b nil it
// finds the single-parent stub of a.
func (g *graph) pairFamily(treeID uint, a, b *uint) (*models.Family, error) {
	fam, err := g.familyWith(treeID, a, b)
	if err != nil || fam != nil {
		return fam, err
	}
	if a == nil && b == nil {
		return nil, nil
	}
	return g.familyWith(treeID, b, a)
}

// stub returns the single-parent family of p, creating it with p in the
// husband or wife slot when there is none.
func (g *graph) stub(p *models.Person, asHusband bool) (*models.Family, error) {
	fam, err := g.pairFamily(p.TreeID, ptr(p.ID), nil)
	if err != nil || fam != nil {
		return fam, err
	}
	fam = &models.Family{TreeID: p.TreeID}
	if asHusband {
		fam.HusbandID = ptr(p.ID)
	} else {
		fam.WifeID = ptr(p.ID)
	}
	if err := g.tx.Create(fam).Error; err != nil {
		return nil, err
	}
	return fam, nil
}

// stubByID is stub for a person known only by ID.
func (g *graph) stubByID(personID uint, asHusband bool) (*models.Family, error) {
	p, err := g.person(personID)
	if err != nil {
		return nil, err
	}
	return g.stub(p, asHusband)
}

func (g *graph) children(familyID uint) ([]models.Child, error) {
	var links []models.Child
	err := g.tx.Where("family_id = ?", familyID).Order("id").Find(&links).Error
	return links, errors.Wrapf(err, "load children of family %d", familyID)
}

func (g *graph) childCount(familyID uint) (int64, error) {
	var n int64
	err := g.tx.Model(&models.Child{}).Where("family_id = ?", familyID).Count(&n).Error
	return n, errors.Wrapf(err, "count children of family %d", familyID)
}

func (g *graph) addChild(familyID, personID uint, rel models.ChildRelation) error {
	link := models.Child{FamilyID: familyID, PersonID: personID, Relation: rel}
	return g.tx.Create(&link).Error
}

func (g *graph) moveChild(link *models.Child, familyID uint) error {
	link.FamilyID = familyID
	return g.tx.Save(link).Error
}

func (g *graph) deleteLink(link *models.Child) error {
	return errors.Wrap(g.tx.Delete(&models.Child{}, link.ID).Error, "delete child link")
}

// deleteFamily removes a family with its events. Remaining child links are
// removed as well.
func (g *graph) deleteFamily(familyID uint) error {
	if err := g.tx.Where("family_id = ?", familyID).Delete(&models.FamilyEvent{}).Error; err != nil {
		return errors.Wrapf(err, "delete events of family %d", familyID)
	}
	if err := g.tx.Where("family_id = ?", familyID).Delete(&models.Child{}).Error; err != nil {
		return errors.Wrapf(err, "delete children of family %d", familyID)
	}
	return errors.Wrapf(g.tx.Delete(&models.Family{}, familyID).Error, "delete family %d", familyID)
}

// collect deletes fam when it no longer records anything: no children and
// at most one parent. It reports whether the family was deleted.
func (g *graph) collect(fam *models.Family) (bool, error) {
	if fam.HusbandID != nil && fam.WifeID != nil {
		return false, nil
	}
	n, err := g.childCount(fam.ID)
	if err != nil || n > 0 {
		return false, err
	}
	return true, g.deleteFamily(fam.ID)
}

// spouseFamilies lists the families where personID fills a parent slot.
func (g *graph) spouseFamilies(personID uint) ([]models.Family, error) {
	var fams []models.Family
	err := g.tx.Where("husband_id = ? OR wife_id = ?", personID, personID).Order("id").Find(&fams).Error
	return fams, errors.Wrapf(err, "load families of person %d", personID)
}

// lifespan holds the birth and death years of a person when known.
type lifespan struct {
	Birth *int
	Death *int
}

func (g *graph) lifespan(personID uint) (lifespan, error) {
	var events []models.Event
	err := g.tx.Where("person_id = ? AND event_type IN ?", personID,
		[]models.EventType{models.EventBirth, models.EventDeath}).Find(&events).Error
	if err != nil {
		return lifespan{}, errors.Wrapf(err, "load lifespan of person %d", personID)
	}
	var span lifespan
	for _, ev := range events {
		switch ev.Type {
		case models.EventBirth:
			span.Birth = ev.Year
		case models.EventDeath:
			span.Death = ev.Year
		}
	}
	return span, nil
}

func (g *graph) lifespanOf(id *uint) (lifespan, error) {
	if id == nil {
		return lifespan{}, nil
	}
	return g.lifespan(*id)
}

// checkParentage rejects parent/child pairs whose dates cannot be right: a
// parent born after the child, or a child born after the mother died or
// more than a year after the father died.
func checkParentage(parent, child lifespan, father bool) error {
	if parent.Birth != nil && child.Birth != nil && *parent.Birth > *child.Birth {
		return models.ErrChronology.Detail("parent born after child")
	}
	if parent.Death == nil || child.Birth == nil {
		return nil
	}
	grace := 0
	if father {
		grace = 1
	}
	if *child.Birth > *parent.Death+grace {
		return models.ErrChronology.Detail("child born after the parent died")
	}
	return nil
}

// overlaps reports whether two lifespans can have coincided.
func overlaps(a, b lifespan) bool {
	if a.Death != nil && b.Birth != nil && *a.Death < *b.Birth {
		return false
	}
	if b.Death != nil && a.Birth != nil && *b.Death < *a.Birth {
		return false
	}
	return true
}
