package services

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vikasavnish/heirloom/internal/cache"
	"github.com/vikasavnish/heirloom/internal/models"
	"github.com/vikasavnish/heirloom/internal/utils"
)

const testOwner uint = 1

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Setup in-memory database
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open database")

	// Every connection to :memory: is a new database; keep exactly one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	// Migrate schema
	require.NoError(t, db.AutoMigrate(models.All()...), "migrate schema")
	return db
}

func testContext() context.Context {
	log := logrus.New()
	log.SetOutput(io.Discard)
	ctx := utils.SetUserIDToContext(context.Background(), testOwner)
	return utils.WithLogger(ctx, log)
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	db     *gorm.DB
	cache  *cache.MemoryExportCache
	trees  TreeService
	people PersonService
	rels   RelationshipService
	search SearchService
	tree   *models.Tree
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	exports := cache.NewMemoryExportCache()
	f := &fixture{
		t:      t,
		ctx:    testContext(),
		db:     db,
		cache:  exports,
		trees:  NewTreeService(db, exports),
		people: NewPersonService(db, exports),
		rels:   NewRelationshipService(db, exports),
		search: NewSearchService(db),
	}
	tree, err := f.trees.CreateTree(f.ctx, "Test tree")
	require.NoError(t, err)
	f.tree = tree
	return f
}

// add creates a person in the fixture tree. birth and death may be empty.
func (f *fixture) add(first, last string, sex models.Sex, birth, death string) *models.Person {
	f.t.Helper()
	p, err := f.people.AddPerson(f.ctx, f.tree.ID, NewPerson{
		FirstName: first, LastName: last, Sex: sex, BirthDate: birth, DeathDate: death,
	})
	require.NoError(f.t, err)
	return p
}

// parents returns the family personID is a child of, or nil.
func (f *fixture) parents(personID uint) *models.Family {
	f.t.Helper()
	var links []models.Child
	require.NoError(f.t, f.db.Where("person_id = ?", personID).Find(&links).Error)
	require.LessOrEqual(f.t, len(links), 1)
	if len(links) == 0 {
		return nil
	}
	var fam models.Family
	require.NoError(f.t, f.db.First(&fam, links[0].FamilyID).Error)
	return &fam
}

func (f *fixture) childIDs(familyID uint) []uint {
	f.t.Helper()
	var ids []uint
	require.NoError(f.t, f.db.Model(&models.Child{}).Where("family_id = ?", familyID).Order("person_id").Pluck("person_id", &ids).Error)
	return ids
}

func (f *fixture) families() []models.Family {
	f.t.Helper()
	var fams []models.Family
	require.NoError(f.t, f.db.Where("tree_id = ?", f.tree.ID).Order("id").Find(&fams).Error)
	return fams
}

func (f *fixture) count(model any, query string, args ...any) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

// checkInvariants asserts the graph rules every engine operation preserves.
func (f *fixture) checkInvariants() {
	f.t.Helper()
	type pair struct{ a, b uint }
	seen := make(map[pair]uint)
	for _, fam := range f.families() {
		kids := len(f.childIDs(fam.ID))
		assert.False(f.t, fam.Parentless() && kids == 0, "family %d has neither parents nor children", fam.ID)
		assert.False(f.t, fam.SingleParent() && kids == 0, "single-parent family %d has no children", fam.ID)

		var a, b uint
		if fam.HusbandID != nil {
			a = *fam.HusbandID
		}
		if fam.WifeID != nil {
			b = *fam.WifeID
		}
		if a > b {
			a, b = b, a
		}
		if !fam.Parentless() {
			prev, dup := seen[pair{a, b}]
			assert.False(f.t, dup, "families %d and %d record the same parents", prev, fam.ID)
			seen[pair{a, b}] = fam.ID
		}
	}

	var people []models.Person
	require.NoError(f.t, f.db.Where("tree_id = ?", f.tree.ID).Find(&people).Error)
	for _, p := range people {
		assert.LessOrEqual(f.t, f.count(&models.Child{}, "person_id = ?", p.ID), int64(1), "person %d", p.ID)
		assert.LessOrEqual(f.t, f.count(&models.Event{}, "person_id = ? AND event_type = ?", p.ID, models.EventBirth), int64(1))
		assert.LessOrEqual(f.t, f.count(&models.Event{}, "person_id = ? AND event_type = ?", p.ID, models.EventDeath), int64(1))
	}
}

func uintPtr(v uint) *uint { return &v }
