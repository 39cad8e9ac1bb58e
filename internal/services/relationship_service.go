package services

import (
	"context"
	"slices"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vikasavnish/heirloom/internal/cache"
	"github.com/vikasavnish/heirloom/internal/models"
	"github.com/vikasavnish/heirloom/internal/utils"
)

// ParentSlot selects which parent AddParent fills.
type ParentSlot string

const (
	Father ParentSlot = "father"
	Mother ParentSlot = "mother"
)

// RelationshipKind names the relationship RemoveRelationship dissolves.
type RelationshipKind string

const (
	RelFather  RelationshipKind = "father"
	RelMother  RelationshipKind = "mother"
	RelChild   RelationshipKind = "child"
	RelPartner RelationshipKind = "partner"
)

// ParseRelationshipKind validates a user supplied relationship kind.
func ParseRelationshipKind(s string) (RelationshipKind, error) {
	switch k := RelationshipKind(s); k {
	case RelFather, RelMother, RelChild, RelPartner:
		return k, nil
	}
	return "", models.ErrInvalidRelationshipKind.Detail("%q", s)
}

// PartnerOptions controls how AddPartner reuses an existing single-parent
// family.
type PartnerOptions struct {
	// FamilyID selects a single-parent family of the person to turn into the
	// new couple's family. Zero uses the person's own stub, if any.
	FamilyID uint
	// MigrateChildIDs lists the children of the reused family that become
	// children of the couple. Nil migrates all of them; the rest move to a
	// fresh single-parent family.
	MigrateChildIDs []uint
}

// RelationshipService mutates the parent/partner/child graph of a tree. Every
// operation validates all preconditions before its first write and runs in
// a single transaction.
type RelationshipService interface {
	AddParent(ctx context.Context, personID uint, slot ParentSlot, parent PersonRef) (*models.Person, error)
	AddPartner(ctx context.Context, personID uint, partner PersonRef, opts PartnerOptions) (*models.Family, error)
	AddChild(ctx context.Context, personID uint, child PersonRef, familyID uint, relation models.ChildRelation) (*models.Person, error)
	RemoveRelationship(ctx context.Context, kind RelationshipKind, personID, relatedID uint) error
}

type relationshipService struct {
	db    *gorm.DB
	cache cache.ExportCache
}

// NewRelationshipService creates a new relationship service
func NewRelationshipService(db *gorm.DB, exports cache.ExportCache) RelationshipService {
	if exports == nil {
		exports = cache.NoopExportCache{}
	}
	return &relationshipService{db: db, cache: exports}
}

func (s *relationshipService) logger(ctx context.Context, op string, personID uint) logrus.FieldLogger {
	return utils.Logger(ctx).WithFields(logrus.Fields{"op": op, "person_id": personID})
}

// AddParent makes parent the father or mother of personID.
func (s *relationshipService) AddParent(ctx context.Context, personID uint, slot ParentSlot, ref PersonRef) (*models.Person, error) {
	if slot != Father && slot != Mother {
		return nil, models.ErrInvalidRelationshipKind.Detail("%q is not a parent", slot)
	}
	father := slot == Father
	defaultSex := models.SexFemale
	if father {
		defaultSex = models.SexMale
	}

	var (
		parent *models.Person
		treeID uint
	)
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		g := &graph{tx: tx}
		p, err := g.person(personID)
		if err != nil {
			return err
		}
		treeID = p.TreeID

		cand, err := g.resolve(p.TreeID, ref, defaultSex)
		if err != nil {
			return err
		}
		if cand.is(p.ID) {
			return models.ErrSelfRelation
		}

		link, fam, err := g.parentFamily(p.ID)
		if err != nil {
			return err
		}
		var other *uint
		if fam != nil {
			own, rest := fam.HusbandID, fam.WifeID
			if !father {
				own, rest = fam.WifeID, fam.HusbandID
			}
			if own != nil {
				if father {
					return models.ErrFatherAlreadySet
				}
				return models.ErrMotherAlreadySet
			}
			if rest != nil && cand.is(*rest) {
				return models.ErrAlreadyParent
			}
			other = rest
		}

		childSpan, err := g.lifespan(p.ID)
		if err != nil {
			return err
		}
		if err := checkParentage(cand.span(), childSpan, father); err != nil {
			return err
		}

		if parent, err = g.materialize(cand); err != nil {
			return err
		}

		if fam == nil {
			stub, err := g.stub(parent, father)
			if err != nil {
				return err
			}
			return g.addChild(stub.ID, p.ID, models.RelationBiological)
		}

		husband, wife := ptr(parent.ID), other
		if !father {
			husband, wife = other, ptr(parent.ID)
		}
		target, err := g.pairFamily(p.TreeID, husband, wife)
		if err != nil {
			return err
		}
		if target != nil {
			if err := g.moveChild(link, target.ID); err != nil {
				return err
			}
			_, err = g.collect(fam)
			return err
		}

		fam.HusbandID, fam.WifeID = husband, wife
		return tx.Save(fam).Error
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, treeID)
	s.logger(ctx, "add_parent", personID).WithFields(logrus.Fields{"parent_id": parent.ID, "slot": slot}).Info("Parent added")
	return parent, nil
}

// AddPartner records personID and partner as a couple.
func (s *relationshipService) AddPartner(ctx context.Context, personID uint, ref PersonRef, opts PartnerOptions) (*models.Family, error) {
	var (
		family *models.Family
		treeID uint
	)
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		g := &graph{tx: tx}
		p, err := g.person(personID)
		if err != nil {
			return err
		}
		treeID = p.TreeID

		cand, err := g.resolve(p.TreeID, ref, models.SexUnknown)
		if err != nil {
			return err
		}
		if cand.is(p.ID) {
			return models.ErrSelfRelation
		}
		if !cand.isNew() {
			shared, err := g.pairFamily(p.TreeID, ptr(p.ID), ptr(cand.person.ID))
			if err != nil {
				return err
			}
			if shared != nil {
				return models.ErrAlreadyPartners
			}
		}

		span, err := g.lifespan(p.ID)
		if err != nil {
			return err
		}
		if !overlaps(span, cand.span()) {
			return models.ErrLifespansDoNotOverlap
		}

		var source *models.Family
		if opts.FamilyID != 0 {
			if source, err = g.family(opts.FamilyID); err != nil {
				return err
			}
			if !source.HasParent(p.ID) {
				return models.ErrNotFamilyMember
			}
			if !source.SingleParent() {
				return models.ErrFamilyNotReusable
			}
		} else if source, err = g.pairFamily(p.TreeID, ptr(p.ID), nil); err != nil {
			return err
		}

		var stay []models.Child
		if source != nil {
			kids, err := g.children(source.ID)
			if err != nil {
				return err
			}
			if opts.MigrateChildIDs != nil {
				for _, id := range opts.MigrateChildIDs {
					if !slices.ContainsFunc(kids, func(c models.Child) bool { return c.PersonID == id }) {
						return models.ErrChildNotInFamily.Detail("person %d", id)
					}
				}
				for _, kid := range kids {
					if !slices.Contains(opts.MigrateChildIDs, kid.PersonID) {
						stay = append(stay, kid)
					}
				}
			}
		} else if len(opts.MigrateChildIDs) > 0 {
			return models.ErrChildNotInFamily.Detail("person %d", opts.MigrateChildIDs[0])
		}

		partner, err := g.materialize(cand)
		if err != nil {
			return err
		}

		pHusband := partnerSlot(p.Sex, partner.Sex)
		husband, wife := ptr(p.ID), ptr(partner.ID)
		if !pHusband {
			husband, wife = wife, husband
		}

		if source == nil {
			family = &models.Family{TreeID: p.TreeID, HusbandID: husband, WifeID: wife}
			return tx.Create(family).Error
		}

		wasHusband := source.HusbandID != nil
		source.HusbandID, source.WifeID = husband, wife
		if err := tx.Save(source).Error; err != nil {
			return err
		}
		family = source

		if len(stay) == 0 {
			return nil
		}
		fresh, err := g.stub(p, wasHusband)
		if err != nil {
			return err
		}
		for i := range stay {
			if err := g.moveChild(&stay[i], fresh.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, treeID)
	s.logger(ctx, "add_partner", personID).WithField("family_id", family.ID).Info("Partner added")
	return family, nil
}

// partnerSlot reports whether a person of sex goes in the husband slot when
// partnered with someone of partnerSex.
func partnerSlot(sex, partnerSex models.Sex) bool {
	switch sex {
	case models.SexMale:
		return true
	case models.SexFemale:
		return false
	default:
		return partnerSex != models.SexMale
	}
}

// AddChild makes child a child of personID, either in familyID or in the
// person's single-parent family.
func (s *relationshipService) AddChild(ctx context.Context, personID uint, ref PersonRef, familyID uint, relation models.ChildRelation) (*models.Person, error) {
	if relation == "" {
		relation = models.RelationBiological
	}
	if !relation.Valid() {
		return nil, models.ErrInvalidPerson.Detail("invalid child relation %q", relation)
	}

	var (
		child  *models.Person
		treeID uint
	)
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		g := &graph{tx: tx}
		p, err := g.person(personID)
		if err != nil {
			return err
		}
		treeID = p.TreeID

		cand, err := g.resolve(p.TreeID, ref, models.SexUnknown)
		if err != nil {
			return err
		}
		if cand.is(p.ID) {
			return models.ErrSelfRelation
		}
		if !cand.isNew() {
			link, err := g.parentLink(cand.person.ID)
			if err != nil {
				return err
			}
			if link != nil {
				return models.ErrChildHasParents
			}
		}

		var fam *models.Family
		if familyID != 0 {
			if fam, err = g.family(familyID); err != nil {
				return err
			}
			if fam.TreeID != p.TreeID || !fam.HasParent(p.ID) {
				return models.ErrNotFamilyMember
			}
			if !cand.isNew() && fam.HasParent(cand.person.ID) {
				return models.ErrSelfRelation.Detail("a parent cannot also be a child of the family")
			}
		} else if fam, err = g.pairFamily(p.TreeID, ptr(p.ID), nil); err != nil {
			return err
		}

		fatherID, motherID := (*uint)(nil), ptr(p.ID)
		if p.Sex == models.SexMale {
			fatherID, motherID = ptr(p.ID), nil
		}
		if fam != nil {
			fatherID, motherID = fam.HusbandID, fam.WifeID
		}

		for _, parent := range []struct {
			id     *uint
			father bool
		}{{fatherID, true}, {motherID, false}} {
			span, err := g.lifespanOf(parent.id)
			if err != nil {
				return err
			}
			if err := checkParentage(span, cand.span(), parent.father); err != nil {
				return err
			}
		}

		if child, err = g.materialize(cand); err != nil {
			return err
		}
		if fam == nil {
			if fam, err = g.stub(p, p.Sex == models.SexMale); err != nil {
				return err
			}
		}
		return g.addChild(fam.ID, child.ID, relation)
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, treeID)
	s.logger(ctx, "add_child", personID).WithField("child_id", child.ID).Info("Child added")
	return child, nil
}

// RemoveRelationship dissolves one relationship between personID and
// relatedID. Children are never orphaned from a remaining parent: they move
// to that parent's single-parent family.
func (s *relationshipService) RemoveRelationship(ctx context.Context, kind RelationshipKind, personID, relatedID uint) error {
	var treeID uint
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		g := &graph{tx: tx}
		p, err := g.person(personID)
		if err != nil {
			return err
		}
		treeID = p.TreeID

		switch kind {
		case RelFather, RelMother:
			return removeParent(g, p, relatedID, kind == RelFather)
		case RelChild:
			return removeChild(g, p, relatedID)
		case RelPartner:
			return removePartner(g, p, relatedID)
		default:
			return models.ErrInvalidRelationshipKind.Detail("%q", kind)
		}
	})
	if err != nil {
		return err
	}

	invalidate(ctx, s.cache, treeID)
	s.logger(ctx, "remove_relationship", personID).WithFields(logrus.Fields{"kind": kind, "related_id": relatedID}).Info("Relationship removed")
	return nil
}

func removeParent(g *graph, p *models.Person, parentID uint, father bool) error {
	link, fam, err := g.parentFamily(p.ID)
	if err != nil {
		return err
	}
	if fam == nil {
		return models.ErrRelationshipNotFound
	}
	slot, other := fam.HusbandID, fam.WifeID
	if !father {
		slot, other = fam.WifeID, fam.HusbandID
	}
	if slot == nil || *slot != parentID {
		return models.ErrRelationshipNotFound
	}

	if other != nil {
		target, err := g.stubByID(*other, !father)
		if err != nil {
			return err
		}
		if err := g.moveChild(link, target.ID); err != nil {
			return err
		}
	} else if err := g.deleteLink(link); err != nil {
		return err
	}
	_, err = g.collect(fam)
	return err
}

func removeChild(g *graph, p *models.Person, childID uint) error {
	link, fam, err := g.parentFamily(childID)
	if err != nil {
		return err
	}
	if fam == nil || !fam.HasParent(p.ID) {
		return models.ErrRelationshipNotFound
	}

	if other := fam.OtherParent(p.ID); other != nil {
		target, err := g.stubByID(*other, fam.HusbandID != nil && *fam.HusbandID == *other)
		if err != nil {
			return err
		}
		return g.moveChild(link, target.ID)
	}

	if err := g.deleteLink(link); err != nil {
		return err
	}
	_, err = g.collect(fam)
	return err
}

func removePartner(g *graph, p *models.Person, partnerID uint) error {
	fam, err := g.pairFamily(p.TreeID, ptr(p.ID), ptr(partnerID))
	if err != nil {
		return err
	}
	if fam == nil {
		return models.ErrRelationshipNotFound
	}
	n, err := g.childCount(fam.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return models.ErrPartnerHasChildren
	}
	return g.deleteFamily(fam.ID)
}
