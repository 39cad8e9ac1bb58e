package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vikasavnish/heirloom/internal/cache"
	"github.com/vikasavnish/heirloom/internal/dates"
	"github.com/vikasavnish/heirloom/internal/models"
	"github.com/vikasavnish/heirloom/internal/utils"
)

// PersonService defines the interface for person and event operations
type PersonService interface {
	AddPerson(ctx context.Context, treeID uint, person NewPerson) (*models.Person, error)
	GetPerson(ctx context.Context, id uint) (*models.Person, error)
	ListPeople(ctx context.Context, treeID uint) ([]models.Person, error)
	UpdatePerson(ctx context.Context, id uint, details PersonDetails) (*models.Person, error)
	DeletePerson(ctx context.Context, id uint) error

	ListEvents(ctx context.Context, personID uint) ([]models.Event, error)
	AddEvent(ctx context.Context, personID uint, in EventInput) (*models.Event, error)
	UpdateEvent(ctx context.Context, eventID uint, in EventInput) (*models.Event, error)
	DeleteEvent(ctx context.Context, eventID uint) error

	AddFamilyEvent(ctx context.Context, familyID uint, in EventInput) (*models.FamilyEvent, error)
	UpdateFamilyEvent(ctx context.Context, eventID uint, in EventInput) (*models.FamilyEvent, error)
	DeleteFamilyEvent(ctx context.Context, eventID uint) error
}

// personService implements the PersonService interface
type personService struct {
	db    *gorm.DB
	cache cache.ExportCache
}

// NewPersonService creates a new person service
func NewPersonService(db *gorm.DB, exports cache.ExportCache) PersonService {
	if exports == nil {
		exports = cache.NoopExportCache{}
	}
	return &personService{db: db, cache: exports}
}

// AddPerson creates a person without any relationships.
func (s *personService) AddPerson(ctx context.Context, treeID uint, in NewPerson) (*models.Person, error) {
	var person *models.Person
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := treeExists(tx, treeID); err != nil {
			return err
		}
		g := &graph{tx: tx}
		cand, err := newCandidate(treeID, &in, models.SexUnknown)
		if err != nil {
			return err
		}
		if cand.birth != nil && cand.death != nil && *cand.death < *cand.birth {
			return models.ErrChronology.Detail("death before birth")
		}
		person, err = g.materialize(cand)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, treeID)
	utils.Logger(ctx).WithFields(logrus.Fields{"tree_id": treeID, "person_id": person.ID}).Info("Person added")
	return person, nil
}

// GetPerson returns a person by ID
func (s *personService) GetPerson(ctx context.Context, id uint) (*models.Person, error) {
	return (&graph{tx: s.db.WithContext(ctx)}).person(id)
}

// ListPeople returns all people of a tree ordered by surname and first name
func (s *personService) ListPeople(ctx context.Context, treeID uint) ([]models.Person, error) {
	var people []models.Person
	result := s.db.WithContext(ctx).Where("tree_id = ?", treeID).Order("last_name, first_name, id").Find(&people)
	return people, errors.Wrap(result.Error, "list people")
}

// UpdatePerson replaces the editable attributes of a person
func (s *personService) UpdatePerson(ctx context.Context, id uint, details PersonDetails) (*models.Person, error) {
	if err := validate.Struct(details); err != nil {
		return nil, validationError(models.ErrInvalidPerson, err)
	}

	var person *models.Person
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if person, err = (&graph{tx: tx}).person(id); err != nil {
			return err
		}
		person.FirstName = details.FirstName
		person.LastName = details.LastName
		person.DeathCause = details.DeathCause
		if details.Sex != "" {
			person.Sex = details.Sex
		}
		return tx.Save(person).Error
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, person.TreeID)
	return person, nil
}

// DeletePerson removes a person and repairs every family the person took
// part in. Families where the person was a parent lose them as a parent;
// those left without children are deleted, and a remaining parent's children
// are merged into that parent's existing single-parent family.
func (s *personService) DeletePerson(ctx context.Context, id uint) error {
	var treeID uint
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		g := &graph{tx: tx}
		p, err := g.person(id)
		if err != nil {
			return err
		}
		treeID = p.TreeID

		fams, err := g.spouseFamilies(p.ID)
		if err != nil {
			return err
		}
		for i := range fams {
			if err := detachParent(g, &fams[i], p.ID); err != nil {
				return err
			}
		}

		link, fam, err := g.parentFamily(p.ID)
		if err != nil {
			return err
		}
		if link != nil {
			if err := g.deleteLink(link); err != nil {
				return err
			}
			if _, err := g.collect(fam); err != nil {
				return err
			}
		}

		if err := tx.Where("person_id = ?", p.ID).Delete(&models.Event{}).Error; err != nil {
			return errors.Wrap(err, "delete events")
		}
		return errors.Wrap(tx.Delete(&models.Person{}, p.ID).Error, "delete person")
	})
	if err != nil {
		return err
	}

	invalidate(ctx, s.cache, treeID)
	utils.Logger(ctx).WithFields(logrus.Fields{"tree_id": treeID, "person_id": id}).Info("Person deleted")
	return nil
}

// detachParent clears personID from fam, deleting or merging fam as needed.
func detachParent(g *graph, fam *models.Family, personID uint) error {
	n, err := g.childCount(fam.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return g.deleteFamily(fam.ID)
	}

	other := fam.OtherParent(personID)
	if other != nil {
		existing, err := g.pairFamily(fam.TreeID, other, nil)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != fam.ID {
			kids, err := g.children(fam.ID)
			if err != nil {
				return err
			}
			for i := range kids {
				if err := g.moveChild(&kids[i], existing.ID); err != nil {
					return err
				}
			}
			return g.deleteFamily(fam.ID)
		}
	}

	if sameSlot(fam.HusbandID, personID) {
		fam.HusbandID = nil
	}
	if sameSlot(fam.WifeID, personID) {
		fam.WifeID = nil
	}
	return g.tx.Save(fam).Error
}

func sameSlot(slot *uint, id uint) bool {
	return slot != nil && *slot == id
}

// ListEvents returns the life events of a person, oldest first
func (s *personService) ListEvents(ctx context.Context, personID uint) ([]models.Event, error) {
	var events []models.Event
	result := s.db.WithContext(ctx).Where("person_id = ?", personID).Order("year IS NULL, year, id").Find(&events)
	return events, errors.Wrap(result.Error, "list events")
}

// AddEvent records a life event. At least one of date, place or
// description must be given.
func (s *personService) AddEvent(ctx context.Context, personID uint, in EventInput) (*models.Event, error) {
	t, err := checkEventInput(in, models.ParseEventType)
	if err != nil {
		return nil, err
	}

	var (
		event  *models.Event
		treeID uint
	)
	err = inTx(ctx, s.db, func(tx *gorm.DB) error {
		g := &graph{tx: tx}
		p, err := g.person(personID)
		if err != nil {
			return err
		}
		treeID = p.TreeID

		event = &models.Event{PersonID: p.ID, Type: t, Date: in.Date, Place: in.Place, Description: in.Description}
		if err := checkEventChronology(g, p.ID, t, dates.YearPtr(in.Date)); err != nil {
			return err
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, treeID)
	return event, nil
}

// UpdateEvent changes a life event. The type may change as long as the
// birth and death singletons still hold.
func (s *personService) UpdateEvent(ctx context.Context, eventID uint, in EventInput) (*models.Event, error) {
	t, err := checkEventInput(in, models.ParseEventType)
	if err != nil {
		return nil, err
	}

	var (
		event  models.Event
		treeID uint
	)
	err = inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&event, eventID).Error; err != nil {
			return notFound(err, models.ErrEventNotFound, eventID)
		}
		g := &graph{tx: tx}
		p, err := g.person(event.PersonID)
		if err != nil {
			return err
		}
		treeID = p.TreeID

		// Chronology is checked against the other events, so move this one
		// out of the way first.
		span, err := g.lifespan(p.ID)
		if err != nil {
			return err
		}
		switch event.Type {
		case models.EventBirth:
			span.Birth = nil
		case models.EventDeath:
			span.Death = nil
		}
		if err := eventChronology(span, t, dates.YearPtr(in.Date)); err != nil {
			return err
		}

		event.Type, event.Date, event.Place, event.Description = t, in.Date, in.Place, in.Description
		return tx.Save(&event).Error
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, treeID)
	return &event, nil
}

// DeleteEvent removes a life event
func (s *personService) DeleteEvent(ctx context.Context, eventID uint) error {
	var treeID uint
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, eventID).Error; err != nil {
			return notFound(err, models.ErrEventNotFound, eventID)
		}
		p, err := (&graph{tx: tx}).person(event.PersonID)
		if err != nil {
			return err
		}
		treeID = p.TreeID
		return tx.Delete(&event).Error
	})
	if err != nil {
		return err
	}
	invalidate(ctx, s.cache, treeID)
	return nil
}

// AddFamilyEvent records an event of a family, such as a marriage
func (s *personService) AddFamilyEvent(ctx context.Context, familyID uint, in EventInput) (*models.FamilyEvent, error) {
	t, err := checkEventInput(in, models.ParseFamilyEventType)
	if err != nil {
		return nil, err
	}

	var event *models.FamilyEvent
	var treeID uint
	err = inTx(ctx, s.db, func(tx *gorm.DB) error {
		g := &graph{tx: tx}
		fam, err := g.family(familyID)
		if err != nil {
			return err
		}
		treeID = fam.TreeID
		if err := checkFamilyEventChronology(g, fam, dates.YearPtr(in.Date)); err != nil {
			return err
		}
		event = &models.FamilyEvent{FamilyID: fam.ID, Type: t, Date: in.Date, Place: in.Place, Description: in.Description}
		return tx.Create(event).Error
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, treeID)
	return event, nil
}

// UpdateFamilyEvent changes an event of a family
func (s *personService) UpdateFamilyEvent(ctx context.Context, eventID uint, in EventInput) (*models.FamilyEvent, error) {
	t, err := checkEventInput(in, models.ParseFamilyEventType)
	if err != nil {
		return nil, err
	}

	var event models.FamilyEvent
	var treeID uint
	err = inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&event, eventID).Error; err != nil {
			return notFound(err, models.ErrEventNotFound, eventID)
		}
		g := &graph{tx: tx}
		fam, err := g.family(event.FamilyID)
		if err != nil {
			return err
		}
		treeID = fam.TreeID
		if err := checkFamilyEventChronology(g, fam, dates.YearPtr(in.Date)); err != nil {
			return err
		}
		event.Type, event.Date, event.Place, event.Description = t, in.Date, in.Place, in.Description
		return tx.Save(&event).Error
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, treeID)
	return &event, nil
}

// DeleteFamilyEvent removes an event of a family
func (s *personService) DeleteFamilyEvent(ctx context.Context, eventID uint) error {
	var treeID uint
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var event models.FamilyEvent
		if err := tx.First(&event, eventID).Error; err != nil {
			return notFound(err, models.ErrEventNotFound, eventID)
		}
		fam, err := (&graph{tx: tx}).family(event.FamilyID)
		if err != nil {
			return err
		}
		treeID = fam.TreeID
		return tx.Delete(&event).Error
	})
	if err != nil {
		return err
	}
	invalidate(ctx, s.cache, treeID)
	return nil
}

func checkEventInput[T any](in EventInput, parse func(string) (T, error)) (T, error) {
	var zero T
	t, err := parse(in.Type)
	if err != nil {
		return zero, err
	}
	if err := validate.Struct(in); err != nil {
		return zero, validationError(models.ErrInvalidEvent, err)
	}
	if in.empty() {
		return zero, models.ErrEmptyEvent
	}
	return t, nil
}

func checkEventChronology(g *graph, personID uint, t models.EventType, year *int) error {
	span, err := g.lifespan(personID)
	if err != nil {
		return err
	}
	return eventChronology(span, t, year)
}

// eventChronology rejects events dated before birth or, except for the
// events that follow a death, after death.
func eventChronology(span lifespan, t models.EventType, year *int) error {
	if year == nil {
		return nil
	}
	if t != models.EventBirth && span.Birth != nil && *year < *span.Birth {
		return models.ErrChronology.Detail("%s before birth", t.Label())
	}
	switch t {
	case models.EventDeath, models.EventFuneral, models.EventCremation:
		return nil
	}
	if span.Death != nil && *year > *span.Death {
		return models.ErrChronology.Detail("%s after death", t.Label())
	}
	return nil
}

// checkFamilyEventChronology rejects family events dated before either
// spouse was born.
func checkFamilyEventChronology(g *graph, fam *models.Family, year *int) error {
	if year == nil {
		return nil
	}
	for _, id := range []*uint{fam.HusbandID, fam.WifeID} {
		span, err := g.lifespanOf(id)
		if err != nil {
			return err
		}
		if span.Birth != nil && *year < *span.Birth {
			return models.ErrChronology.Detail("family event before a spouse was born")
		}
	}
	return nil
}

func notFound(err error, sentinel *models.Error, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel.Detail("id %d", id)
	}
	return errors.Wrapf(err, "load %d", id)
}

func treeExists(tx *gorm.DB, treeID uint) error {
	var n int64
	if err := tx.Model(&models.Tree{}).Where("id = ?", treeID).Count(&n).Error; err != nil {
		return errors.Wrap(err, "load tree")
	}
	if n == 0 {
		return models.ErrTreeNotFound.Detail("id %d", treeID)
	}
	return nil
}
