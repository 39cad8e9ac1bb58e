package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/heirloom/internal/models"
)

func TestAddFatherThenRemoveFather(t *testing.T) {
	f := newFixture(t)
	child := f.add("Elsa", "Berg", models.SexFemale, "1901", "")

	father, err := f.rels.AddParent(f.ctx, child.ID, Father, Create(NewPerson{FirstName: "Karl", LastName: "Berg", BirthDate: "1870"}))
	require.NoError(t, err)
	assert.Equal(t, models.SexMale, father.Sex)

	fams := f.families()
	require.Len(t, fams, 1)
	assert.Equal(t, &father.ID, fams[0].HusbandID)
	assert.Nil(t, fams[0].WifeID)
	assert.Equal(t, []uint{child.ID}, f.childIDs(fams[0].ID))
	f.checkInvariants()

	require.NoError(t, f.rels.RemoveRelationship(f.ctx, RelFather, child.ID, father.ID))
	assert.Empty(t, f.families())
	assert.Zero(t, f.count(&models.Child{}, "person_id = ?", child.ID))
	_, err = f.people.GetPerson(f.ctx, father.ID)
	assert.NoError(t, err, "removing the relationship keeps the person")
}

func TestAddParentCompletesOnlyChildFamily(t *testing.T) {
	f := newFixture(t)
	child := f.add("Elsa", "Berg", models.SexFemale, "", "")
	father, err := f.rels.AddParent(f.ctx, child.ID, Father, Create(NewPerson{FirstName: "Karl"}))
	require.NoError(t, err)
	before := f.parents(child.ID)

	mother, err := f.rels.AddParent(f.ctx, child.ID, Mother, Create(NewPerson{FirstName: "Anna"}))
	require.NoError(t, err)
	assert.Equal(t, models.SexFemale, mother.Sex)

	after := f.parents(child.ID)
	require.NotNil(t, after)
	assert.Equal(t, before.ID, after.ID, "the stub is completed in place")
	assert.Equal(t, &father.ID, after.HusbandID)
	assert.Equal(t, &mother.ID, after.WifeID)
	assert.Len(t, f.families(), 1)
	f.checkInvariants()
}

func TestAddParentFillsSharedStub(t *testing.T) {
	f := newFixture(t)
	father := f.add("Karl", "Berg", models.SexMale, "", "")
	first, err := f.rels.AddChild(f.ctx, father.ID, Create(NewPerson{FirstName: "Elsa"}), 0, "")
	require.NoError(t, err)
	second, err := f.rels.AddChild(f.ctx, father.ID, Create(NewPerson{FirstName: "Nils"}), 0, "")
	require.NoError(t, err)
	stub := f.parents(first.ID)
	require.Equal(t, stub.ID, f.parents(second.ID).ID)

	mother, err := f.rels.AddParent(f.ctx, first.ID, Mother, Create(NewPerson{FirstName: "Anna"}))
	require.NoError(t, err)

	couple := f.parents(first.ID)
	require.Equal(t, stub.ID, couple.ID, "the stub is completed in place")
	assert.Equal(t, &father.ID, couple.HusbandID)
	assert.Equal(t, &mother.ID, couple.WifeID)
	assert.Equal(t, stub.ID, f.parents(second.ID).ID)
	assert.Equal(t, []uint{first.ID, second.ID}, f.childIDs(stub.ID))
	assert.Len(t, f.families(), 1)
	f.checkInvariants()
}

func TestAddParentKeepsExplicitUnknownSex(t *testing.T) {
	f := newFixture(t)
	child := f.add("Elsa", "Berg", models.SexFemale, "", "")
	parent, err := f.rels.AddParent(f.ctx, child.ID, Father, Create(NewPerson{FirstName: "Kim", Sex: models.SexUnknown}))
	require.NoError(t, err)
	assert.Equal(t, models.SexUnknown, parent.Sex)
	assert.Equal(t, &parent.ID, f.parents(child.ID).HusbandID)

	other := f.add("Nils", "Berg", models.SexMale, "", "")
	mother, err := f.rels.AddParent(f.ctx, other.ID, Mother, Create(NewPerson{FirstName: "Anna"}))
	require.NoError(t, err)
	assert.Equal(t, models.SexFemale, mother.Sex)
}

func TestAddParentMovesChildToExistingCouple(t *testing.T) {
	f := newFixture(t)
	father := f.add("Karl", "Berg", models.SexMale, "", "")
	mother := f.add("Anna", "Lind", models.SexFemale, "", "")
	couple, err := f.rels.AddPartner(f.ctx, father.ID, Existing(mother.ID), PartnerOptions{})
	require.NoError(t, err)

	child := f.add("Elsa", "Berg", models.SexFemale, "", "")
	_, err = f.rels.AddParent(f.ctx, child.ID, Father, Existing(father.ID))
	require.NoError(t, err)
	stub := f.parents(child.ID)
	require.NotEqual(t, couple.ID, stub.ID)

	_, err = f.rels.AddParent(f.ctx, child.ID, Mother, Existing(mother.ID))
	require.NoError(t, err)

	assert.Equal(t, couple.ID, f.parents(child.ID).ID)
	assert.Zero(t, f.count(&models.Family{}, "id = ?", stub.ID), "the emptied stub is removed")
	assert.Len(t, f.families(), 1)
	f.checkInvariants()
}

func TestAddParentRejections(t *testing.T) {
	f := newFixture(t)
	child := f.add("Elsa", "Berg", models.SexFemale, "1900", "")
	father, err := f.rels.AddParent(f.ctx, child.ID, Father, Create(NewPerson{FirstName: "Karl"}))
	require.NoError(t, err)
	orphan := f.add("Nils", "Berg", models.SexMale, "1900", "")

	tests := []struct {
		name   string
		person uint
		slot   ParentSlot
		ref    PersonRef
		want   error
	}{
		{"self", child.ID, Mother, Existing(child.ID), models.ErrSelfRelation},
		{"father already set", child.ID, Father, Create(NewPerson{FirstName: "Olof"}), models.ErrFatherAlreadySet},
		{"already the other parent", child.ID, Mother, Existing(father.ID), models.ErrAlreadyParent},
		{"parent born after child", orphan.ID, Father, Create(NewPerson{FirstName: "Olof", BirthDate: "1920"}), models.ErrChronology},
		{"mother died before birth", orphan.ID, Mother, Create(NewPerson{FirstName: "Maja", DeathDate: "1899"}), models.ErrChronology},
		{"father died long before birth", orphan.ID, Father, Create(NewPerson{FirstName: "Olof", DeathDate: "1898"}), models.ErrChronology},
		{"both existing and new", orphan.ID, Father, PersonRef{ExistingID: father.ID, New: &NewPerson{FirstName: "Olof"}}, models.ErrInvalidPerson},
		{"missing person", 9999, Father, Create(NewPerson{FirstName: "Olof"}), models.ErrPersonNotFound},
	}

	people := f.count(&models.Person{}, "tree_id = ?", f.tree.ID)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.rels.AddParent(f.ctx, tt.person, tt.slot, tt.ref)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, people, f.count(&models.Person{}, "tree_id = ?", f.tree.ID), "rejected operations create nobody")
	f.checkInvariants()
}

func TestAddParentFatherGraceYear(t *testing.T) {
	f := newFixture(t)
	child := f.add("Elsa", "Berg", models.SexFemale, "1900", "")

	_, err := f.rels.AddParent(f.ctx, child.ID, Father, Create(NewPerson{FirstName: "Karl", DeathDate: "1899"}))
	require.NoError(t, err, "a father may die in the year before the birth")
}

func TestAddParentCrossTree(t *testing.T) {
	f := newFixture(t)
	other, err := f.trees.CreateTree(f.ctx, "Other tree")
	require.NoError(t, err)
	stranger, err := f.people.AddPerson(f.ctx, other.ID, NewPerson{FirstName: "Olof"})
	require.NoError(t, err)
	child := f.add("Elsa", "Berg", models.SexFemale, "", "")

	_, err = f.rels.AddParent(f.ctx, child.ID, Father, Existing(stranger.ID))
	assert.ErrorIs(t, err, models.ErrCrossTreeFamily)
	assert.Empty(t, f.families())
}

// partnerFixture is a father with two children in his single-parent family.
func partnerFixture(t *testing.T) (*fixture, *models.Person, *models.Family, []*models.Person) {
	f := newFixture(t)
	p := f.add("Karl", "Berg", models.SexMale, "1870", "")
	var kids []*models.Person
	for _, name := range []string{"Elsa", "Nils"} {
		kid, err := f.rels.AddChild(f.ctx, p.ID, Create(NewPerson{FirstName: name, LastName: "Berg", BirthDate: "1900"}), 0, "")
		require.NoError(t, err)
		kids = append(kids, kid)
	}
	stub := f.parents(kids[0].ID)
	require.NotNil(t, stub)
	return f, p, stub, kids
}

func TestAddPartnerMigratesAllChildren(t *testing.T) {
	f, p, stub, kids := partnerFixture(t)

	fam, err := f.rels.AddPartner(f.ctx, p.ID, Create(NewPerson{FirstName: "Anna", Sex: models.SexFemale}), PartnerOptions{FamilyID: stub.ID})
	require.NoError(t, err)

	assert.Equal(t, stub.ID, fam.ID, "the single-parent family is converted in place")
	assert.Equal(t, &p.ID, fam.HusbandID)
	require.NotNil(t, fam.WifeID)
	assert.Equal(t, []uint{kids[0].ID, kids[1].ID}, f.childIDs(fam.ID))
	assert.Len(t, f.families(), 1)
	f.checkInvariants()
}

func TestAddPartnerPartialMigration(t *testing.T) {
	f, p, stub, kids := partnerFixture(t)

	fam, err := f.rels.AddPartner(f.ctx, p.ID, Create(NewPerson{FirstName: "Anna", Sex: models.SexFemale}), PartnerOptions{
		FamilyID:        stub.ID,
		MigrateChildIDs: []uint{kids[0].ID},
	})
	require.NoError(t, err)

	assert.Equal(t, stub.ID, fam.ID)
	assert.Equal(t, []uint{kids[0].ID}, f.childIDs(fam.ID))

	rest := f.parents(kids[1].ID)
	require.NotNil(t, rest)
	assert.NotEqual(t, fam.ID, rest.ID)
	assert.Equal(t, &p.ID, rest.HusbandID)
	assert.Nil(t, rest.WifeID)
	assert.Len(t, f.families(), 2)
	f.checkInvariants()
}

func TestAddPartnerUsesOwnStubByDefault(t *testing.T) {
	f, p, stub, _ := partnerFixture(t)

	fam, err := f.rels.AddPartner(f.ctx, p.ID, Create(NewPerson{FirstName: "Anna"}), PartnerOptions{})
	require.NoError(t, err)
	assert.Equal(t, stub.ID, fam.ID)
	assert.Len(t, f.families(), 1)
}

func TestAddPartnerSlots(t *testing.T) {
	tests := []struct {
		name        string
		sex         models.Sex
		partnerSex  models.Sex
		wantHusband bool
	}{
		{"male person", models.SexMale, models.SexMale, true},
		{"female person", models.SexFemale, models.SexMale, false},
		{"unknown with male partner", models.SexUnknown, models.SexMale, false},
		{"unknown with female partner", models.SexUnknown, models.SexFemale, true},
		{"both unknown", models.SexUnknown, models.SexUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantHusband, partnerSlot(tt.sex, tt.partnerSex))
		})
	}
}

func TestAddPartnerRejections(t *testing.T) {
	f, p, stub, kids := partnerFixture(t)
	wife := f.add("Anna", "Lind", models.SexFemale, "1875", "")
	couple, err := f.rels.AddPartner(f.ctx, p.ID, Existing(wife.ID), PartnerOptions{FamilyID: stub.ID})
	require.NoError(t, err)
	stranger := f.add("Olof", "Ek", models.SexMale, "", "")
	strangerChild, err := f.rels.AddChild(f.ctx, stranger.ID, Create(NewPerson{FirstName: "Maja"}), 0, "")
	require.NoError(t, err)
	strangerStub := f.parents(strangerChild.ID)

	tests := []struct {
		name string
		ref  PersonRef
		opts PartnerOptions
		want error
	}{
		{"self", Existing(p.ID), PartnerOptions{}, models.ErrSelfRelation},
		{"already partners", Existing(wife.ID), PartnerOptions{}, models.ErrAlreadyPartners},
		{"not overlapping", Create(NewPerson{FirstName: "Brita", DeathDate: "1850"}), PartnerOptions{}, models.ErrLifespansDoNotOverlap},
		{"family of someone else", Create(NewPerson{FirstName: "Brita"}), PartnerOptions{FamilyID: strangerStub.ID}, models.ErrNotFamilyMember},
		{"family with two parents", Create(NewPerson{FirstName: "Brita"}), PartnerOptions{FamilyID: couple.ID}, models.ErrFamilyNotReusable},
		{"unknown family", Create(NewPerson{FirstName: "Brita"}), PartnerOptions{FamilyID: 9999}, models.ErrFamilyNotFound},
		{"child outside the family", Create(NewPerson{FirstName: "Brita"}), PartnerOptions{MigrateChildIDs: []uint{kids[0].ID}}, models.ErrChildNotInFamily},
	}

	people := f.count(&models.Person{}, "tree_id = ?", f.tree.ID)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.rels.AddPartner(f.ctx, p.ID, tt.ref, tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, people, f.count(&models.Person{}, "tree_id = ?", f.tree.ID))
	f.checkInvariants()
}

func TestRemovePartner(t *testing.T) {
	f := newFixture(t)
	p := f.add("Karl", "Berg", models.SexMale, "", "")
	q := f.add("Anna", "Lind", models.SexFemale, "", "")
	fam, err := f.rels.AddPartner(f.ctx, p.ID, Existing(q.ID), PartnerOptions{})
	require.NoError(t, err)
	_, err = f.people.AddFamilyEvent(f.ctx, fam.ID, EventInput{Type: "marriage", Date: "1895"})
	require.NoError(t, err)

	require.NoError(t, f.rels.RemoveRelationship(f.ctx, RelPartner, q.ID, p.ID))
	assert.Empty(t, f.families())
	assert.Zero(t, f.count(&models.FamilyEvent{}, "family_id = ?", fam.ID))

	err = f.rels.RemoveRelationship(f.ctx, RelPartner, q.ID, p.ID)
	assert.ErrorIs(t, err, models.ErrRelationshipNotFound)
}

func TestRemovePartnerWithChildrenRejected(t *testing.T) {
	f := newFixture(t)
	p := f.add("Karl", "Berg", models.SexMale, "", "")
	q := f.add("Anna", "Lind", models.SexFemale, "", "")
	fam, err := f.rels.AddPartner(f.ctx, p.ID, Existing(q.ID), PartnerOptions{})
	require.NoError(t, err)
	child, err := f.rels.AddChild(f.ctx, p.ID, Create(NewPerson{FirstName: "Elsa"}), fam.ID, "")
	require.NoError(t, err)

	err = f.rels.RemoveRelationship(f.ctx, RelPartner, p.ID, q.ID)
	assert.ErrorIs(t, err, models.ErrPartnerHasChildren)

	fams := f.families()
	require.Len(t, fams, 1)
	assert.Equal(t, fam.ID, fams[0].ID)
	assert.Equal(t, []uint{child.ID}, f.childIDs(fam.ID))
}

func TestRemoveParentKeepsOtherParent(t *testing.T) {
	f := newFixture(t)
	p := f.add("Karl", "Berg", models.SexMale, "", "")
	q := f.add("Anna", "Lind", models.SexFemale, "", "")
	fam, err := f.rels.AddPartner(f.ctx, p.ID, Existing(q.ID), PartnerOptions{})
	require.NoError(t, err)
	child, err := f.rels.AddChild(f.ctx, q.ID, Create(NewPerson{FirstName: "Elsa"}), fam.ID, "")
	require.NoError(t, err)

	require.NoError(t, f.rels.RemoveRelationship(f.ctx, RelFather, child.ID, p.ID))

	stub := f.parents(child.ID)
	require.NotNil(t, stub)
	assert.Nil(t, stub.HusbandID)
	assert.Equal(t, &q.ID, stub.WifeID)
	assert.Equal(t, int64(1), f.count(&models.Family{}, "id = ?", fam.ID), "the couple keeps its family")
	f.checkInvariants()

	err = f.rels.RemoveRelationship(f.ctx, RelFather, child.ID, p.ID)
	assert.ErrorIs(t, err, models.ErrRelationshipNotFound)
}

func TestRemoveChild(t *testing.T) {
	f := newFixture(t)
	p := f.add("Karl", "Berg", models.SexMale, "", "")
	q := f.add("Anna", "Lind", models.SexFemale, "", "")
	fam, err := f.rels.AddPartner(f.ctx, p.ID, Existing(q.ID), PartnerOptions{})
	require.NoError(t, err)
	child, err := f.rels.AddChild(f.ctx, p.ID, Create(NewPerson{FirstName: "Elsa"}), fam.ID, "")
	require.NoError(t, err)

	require.NoError(t, f.rels.RemoveRelationship(f.ctx, RelChild, p.ID, child.ID))
	stub := f.parents(child.ID)
	require.NotNil(t, stub, "the child stays with the mother")
	assert.Equal(t, &q.ID, stub.WifeID)

	require.NoError(t, f.rels.RemoveRelationship(f.ctx, RelChild, q.ID, child.ID))
	assert.Nil(t, f.parents(child.ID))
	assert.Zero(t, f.count(&models.Family{}, "id = ?", stub.ID))
	f.checkInvariants()

	err = f.rels.RemoveRelationship(f.ctx, RelChild, q.ID, child.ID)
	assert.ErrorIs(t, err, models.ErrRelationshipNotFound)
}

func TestAddChild(t *testing.T) {
	f := newFixture(t)
	p := f.add("Karl", "Berg", models.SexMale, "1870", "")
	q := f.add("Anna", "Lind", models.SexFemale, "1872", "")
	fam, err := f.rels.AddPartner(f.ctx, p.ID, Existing(q.ID), PartnerOptions{})
	require.NoError(t, err)

	adopted, err := f.rels.AddChild(f.ctx, q.ID, Create(NewPerson{FirstName: "Elsa", BirthDate: "1901"}), fam.ID, models.RelationAdopted)
	require.NoError(t, err)
	var link models.Child
	require.NoError(t, f.db.Where("person_id = ?", adopted.ID).First(&link).Error)
	assert.Equal(t, fam.ID, link.FamilyID)
	assert.Equal(t, models.RelationAdopted, link.Relation)

	other := f.add("Olof", "Ek", models.SexMale, "", "")
	tests := []struct {
		name     string
		person   uint
		ref      PersonRef
		familyID uint
		want     error
	}{
		{"child already has parents", p.ID, Existing(adopted.ID), 0, models.ErrChildHasParents},
		{"family of someone else", other.ID, Create(NewPerson{FirstName: "Maja"}), fam.ID, models.ErrNotFamilyMember},
		{"parent as own child", p.ID, Existing(q.ID), fam.ID, models.ErrSelfRelation},
		{"child older than mother", p.ID, Create(NewPerson{FirstName: "Maja", BirthDate: "1860"}), fam.ID, models.ErrChronology},
		{"self", p.ID, Existing(p.ID), 0, models.ErrSelfRelation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.rels.AddChild(f.ctx, tt.person, tt.ref, tt.familyID, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = f.rels.AddChild(f.ctx, p.ID, Create(NewPerson{FirstName: "Maja"}), 0, "X")
	assert.ErrorIs(t, err, models.ErrInvalidPerson)
	f.checkInvariants()
}

func TestAddChildWithoutFamilyCreatesStub(t *testing.T) {
	f := newFixture(t)
	mother := f.add("Anna", "Lind", models.SexFemale, "", "")

	child, err := f.rels.AddChild(f.ctx, mother.ID, Create(NewPerson{FirstName: "Elsa"}), 0, "")
	require.NoError(t, err)

	stub := f.parents(child.ID)
	require.NotNil(t, stub)
	assert.Nil(t, stub.HusbandID)
	assert.Equal(t, &mother.ID, stub.WifeID)
	f.checkInvariants()
}

func TestParseRelationshipKind(t *testing.T) {
	kind, err := ParseRelationshipKind("partner")
	require.NoError(t, err)
	assert.Equal(t, RelPartner, kind)

	_, err = ParseRelationshipKind("cousin")
	assert.ErrorIs(t, err, models.ErrInvalidRelationshipKind)
}
