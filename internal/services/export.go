package services

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vikasavnish/heirloom/internal/gedcom"
	"github.com/vikasavnish/heirloom/internal/models"
)

// buildDocument loads a whole tree into a GEDCOM document. People and
// families get fresh sequential cross references in ID order; the references
// are not stored.
func buildDocument(db *gorm.DB, tree *models.Tree) (*gedcom.Document, error) {
	var (
		people   []models.Person
		families []models.Family
		links    []models.Child
		events   []models.Event
		famEvts  []models.FamilyEvent
	)
	familyIDs := db.Model(&models.Family{}).Select("id").Where("tree_id = ?", tree.ID)
	personIDs := db.Model(&models.Person{}).Select("id").Where("tree_id = ?", tree.ID)

	loads := []struct {
		what  string
		query *gorm.DB
		dest  any
	}{
		{"people", db.Where("tree_id = ?", tree.ID).Order("id"), &people},
		{"families", db.Where("tree_id = ?", tree.ID).Order("id"), &families},
		{"child links", db.Where("family_id IN (?)", familyIDs).Order("id"), &links},
		{"events", db.Where("person_id IN (?)", personIDs).Order("id"), &events},
		{"family events", db.Where("family_id IN (?)", familyIDs).Order("id"), &famEvts},
	}
	for _, l := range loads {
		if err := l.query.Find(l.dest).Error; err != nil {
			return nil, errors.Wrapf(err, "load %s of tree %d", l.what, tree.ID)
		}
	}

	doc := gedcom.NewDocument(tree.Name)
	indis := make(map[uint]*gedcom.Individual, len(people))
	for i, p := range people {
		indi := &gedcom.Individual{
			ID:         gedcom.IndividualXref(i + 1),
			GivenName:  p.FirstName,
			Surname:    p.LastName,
			Sex:        p.Sex,
			DeathCause: p.DeathCause,
		}
		indis[p.ID] = indi
		doc.AddIndividual(indi)
	}
	for _, ev := range events {
		indi := indis[ev.PersonID]
		indi.Events = append(indi.Events, &gedcom.Event{
			Type:        ev.Type,
			EventDetail: gedcom.EventDetail{Date: ev.Date, Place: ev.Place, Note: ev.Description, Year: ev.Year},
		})
	}

	fams := make(map[uint]*gedcom.Family, len(families))
	for i, f := range families {
		fam := &gedcom.Family{ID: gedcom.FamilyXref(i + 1)}
		if f.HusbandID != nil {
			if h := indis[*f.HusbandID]; h != nil {
				fam.Husband = h.ID
				h.FAMS = append(h.FAMS, fam.ID)
			}
		}
		if f.WifeID != nil {
			if w := indis[*f.WifeID]; w != nil {
				fam.Wife = w.ID
				w.FAMS = append(w.FAMS, fam.ID)
			}
		}
		fams[f.ID] = fam
		doc.AddFamily(fam)
	}
	for _, link := range links {
		fam, child := fams[link.FamilyID], indis[link.PersonID]
		if fam == nil || child == nil {
			continue
		}
		fam.Children = append(fam.Children, child.ID)
		child.FAMC = append(child.FAMC, gedcom.FamilyLink{Family: fam.ID, Relation: link.Relation})
	}
	for _, ev := range famEvts {
		fam := fams[ev.FamilyID]
		fam.Events = append(fam.Events, &gedcom.FamilyEvent{
			Type:        ev.Type,
			EventDetail: gedcom.EventDetail{Date: ev.Date, Place: ev.Place, Note: ev.Description, Year: ev.Year},
		})
	}
	return doc, nil
}
