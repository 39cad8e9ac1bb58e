package services

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vikasavnish/heirloom/internal/cache"
	"github.com/vikasavnish/heirloom/internal/gedcom"
	"github.com/vikasavnish/heirloom/internal/models"
	"github.com/vikasavnish/heirloom/internal/utils"
)

// ImportOptions names the tree created by an import.
type ImportOptions struct {
	// TreeName overrides the _TREE name found in the document header.
	TreeName       string
	SourceDocument string
}

// ImportResult summarises a completed import.
type ImportResult struct {
	ImportID    string
	Tree        models.Tree
	People      int
	Families    int
	Events      int
	Diagnostics []gedcom.Diagnostic
}

// RepairReport lists what Repair changed.
type RepairReport struct {
	RemovedFamilies int
	MergedFamilies  int
}

// TreeService defines the interface for tree level operations
type TreeService interface {
	CreateTree(ctx context.Context, name string) (*models.Tree, error)
	GetTree(ctx context.Context, id uint) (*models.Tree, error)
	ListTrees(ctx context.Context) ([]models.Tree, error)
	DeleteTree(ctx context.Context, id uint) error
	ImportGEDCOM(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error)
	ExportGEDCOM(ctx context.Context, id uint, w io.Writer) error
	Repair(ctx context.Context, id uint) (*RepairReport, error)
}

type treeService struct {
	db    *gorm.DB
	cache cache.ExportCache
}

// NewTreeService creates a new tree service
func NewTreeService(db *gorm.DB, exports cache.ExportCache) TreeService {
	if exports == nil {
		exports = cache.NoopExportCache{}
	}
	return &treeService{db: db, cache: exports}
}

func ownerFromContext(ctx context.Context) (uint, error) {
	owner, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		return 0, models.ErrInvalidTree.Detail("no owner in context")
	}
	return owner, nil
}

// createTree stores a new tree after checking its name is free for owner.
func createTree(tx *gorm.DB, owner uint, name, source string) (*models.Tree, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.ErrInvalidTree.Detail("name is required")
	}
	if strings.ContainsAny(name, "\r\n") {
		return nil, models.ErrInvalidTree.Detail("name must be a single line")
	}
	var n int64
	if err := tx.Model(&models.Tree{}).Where("user_id = ? AND name = ?", owner, name).Count(&n).Error; err != nil {
		return nil, errors.Wrap(err, "check tree name")
	}
	if n > 0 {
		return nil, models.ErrDuplicateTreeName.Detail("%q", name)
	}
	tree := &models.Tree{UserID: owner, Name: name, SourceDocument: source}
	if err := tx.Create(tree).Error; err != nil {
		return nil, errors.Wrap(err, "create tree")
	}
	return tree, nil
}

// CreateTree creates an empty tree owned by the user in ctx
func (s *treeService) CreateTree(ctx context.Context, name string) (*models.Tree, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var tree *models.Tree
	err = inTx(ctx, s.db, func(tx *gorm.DB) error {
		tree, err = createTree(tx, owner, name, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	utils.Logger(ctx).WithFields(logrus.Fields{"tree_id": tree.ID, "user_id": owner}).Info("Tree created")
	return tree, nil
}

// GetTree returns a tree of the user in ctx
func (s *treeService) GetTree(ctx context.Context, id uint) (*models.Tree, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var tree models.Tree
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, owner).First(&tree).Error; err != nil {
		return nil, notFound(err, models.ErrTreeNotFound, id)
	}
	return &tree, nil
}

// ListTrees returns the trees of the user in ctx ordered by name
func (s *treeService) ListTrees(ctx context.Context) ([]models.Tree, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var trees []models.Tree
	result := s.db.WithContext(ctx).Where("user_id = ?", owner).Order("name").Find(&trees)
	return trees, errors.Wrap(result.Error, "list trees")
}

// DeleteTree removes a tree with everything it owns
func (s *treeService) DeleteTree(ctx context.Context, id uint) error {
	if _, err := s.GetTree(ctx, id); err != nil {
		return err
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		families := tx.Model(&models.Family{}).Select("id").Where("tree_id = ?", id)
		people := tx.Model(&models.Person{}).Select("id").Where("tree_id = ?", id)

		steps := []struct {
			what  string
			query *gorm.DB
			model any
		}{
			{"family events", tx.Where("family_id IN (?)", families), &models.FamilyEvent{}},
			{"child links", tx.Where("family_id IN (?)", families), &models.Child{}},
			{"events", tx.Where("person_id IN (?)", people), &models.Event{}},
			{"families", tx.Where("tree_id = ?", id), &models.Family{}},
			{"people", tx.Where("tree_id = ?", id), &models.Person{}},
		}
		for _, step := range steps {
			if err := step.query.Delete(step.model).Error; err != nil {
				return errors.Wrapf(err, "delete %s", step.what)
			}
		}
		return errors.Wrap(tx.Delete(&models.Tree{}, id).Error, "delete tree")
	})
	if err != nil {
		return err
	}

	invalidate(ctx, s.cache, id)
	utils.Logger(ctx).WithField("tree_id", id).Info("Tree deleted")
	return nil
}

// ImportGEDCOM parses r and stores it as a new tree. The import is all or
// nothing: any failure leaves no trace of the tree.
func (s *treeService) ImportGEDCOM(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	importID := uuid.NewString()
	log := utils.Logger(ctx).WithFields(logrus.Fields{"import_id": importID, "user_id": owner})

	doc, err := gedcom.Parse(r, gedcom.WithLogger(log))
	if err != nil {
		log.WithError(err).Warn("GEDCOM document rejected")
		return nil, err
	}

	name := opts.TreeName
	if strings.TrimSpace(name) == "" {
		name = doc.TreeName
	}

	result := &ImportResult{ImportID: importID}
	err = inTx(utils.WithLogger(ctx, log), s.db, func(tx *gorm.DB) error {
		tree, err := createTree(tx, owner, name, opts.SourceDocument)
		if err != nil {
			return err
		}
		result.Tree = *tree
		return newImporter(tx, tree, doc, log).run(result)
	})
	if err != nil {
		log.WithError(err).Warn("GEDCOM import rolled back")
		return nil, err
	}
	result.Diagnostics = doc.Diagnostics

	log.WithFields(logrus.Fields{
		"tree_id":     result.Tree.ID,
		"people":      result.People,
		"families":    result.Families,
		"diagnostics": len(result.Diagnostics),
	}).Info("GEDCOM imported")
	return result, nil
}

// ExportGEDCOM writes the tree as GEDCOM to w, serving it from the export
// cache when the tree is unchanged since the last export.
func (s *treeService) ExportGEDCOM(ctx context.Context, id uint, w io.Writer) error {
	tree, err := s.GetTree(ctx, id)
	if err != nil {
		return err
	}
	log := utils.Logger(ctx).WithField("tree_id", id)

	if data, ok, err := s.cache.Get(ctx, id); err != nil {
		log.WithError(err).Warn("Export cache unavailable")
	} else if ok {
		log.Debug("Export served from cache")
		_, err := w.Write(data)
		return errors.Wrap(err, "write export")
	}

	doc, err := buildDocument(s.db.WithContext(ctx), tree)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gedcom.NewEncoder(&buf).Encode(doc); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, id, buf.Bytes()); err != nil {
		log.WithError(err).Warn("Failed to cache export")
	}
	_, err = w.Write(buf.Bytes())
	return errors.Wrap(err, "write export")
}

// Repair removes families that record nothing and merges families that
// duplicate a pair of parents.
func (s *treeService) Repair(ctx context.Context, id uint) (*RepairReport, error) {
	if _, err := s.GetTree(ctx, id); err != nil {
		return nil, err
	}
	report := &RepairReport{}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		g := &graph{tx: tx}
		var fams []models.Family
		if err := tx.Where("tree_id = ?", id).Order("id").Find(&fams).Error; err != nil {
			return errors.Wrap(err, "load families")
		}

		type pair struct{ a, b uint }
		keyOf := func(f *models.Family) pair {
			var a, b uint
			if f.HusbandID != nil {
				a = *f.HusbandID
			}
			if f.WifeID != nil {
				b = *f.WifeID
			}
			if a > b {
				a, b = b, a
			}
			return pair{a, b}
		}

		kept := make(map[pair]uint)
		for i := range fams {
			fam := &fams[i]
			if fam.Parentless() {
				deleted, err := g.collect(fam)
				if err != nil {
					return err
				}
				if deleted {
					report.RemovedFamilies++
				}
				continue
			}

			key := keyOf(fam)
			if into, ok := kept[key]; ok {
				if err := mergeFamily(g, fam.ID, into); err != nil {
					return err
				}
				report.MergedFamilies++
				continue
			}
			kept[key] = fam.ID
		}

		for i := range fams {
			fam := &fams[i]
			if fam.Parentless() || kept[keyOf(fam)] != fam.ID {
				continue
			}
			deleted, err := g.collect(fam)
			if err != nil {
				return err
			}
			if deleted {
				report.RemovedFamilies++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if report.RemovedFamilies+report.MergedFamilies > 0 {
		invalidate(ctx, s.cache, id)
	}
	utils.Logger(ctx).WithFields(logrus.Fields{
		"tree_id": id,
		"removed": report.RemovedFamilies,
		"merged":  report.MergedFamilies,
	}).Info("Tree repaired")
	return report, nil
}

// mergeFamily moves the children and missing events of from into into, then
// deletes from.
func mergeFamily(g *graph, from, into uint) error {
	kids, err := g.children(from)
	if err != nil {
		return err
	}
	for i := range kids {
		if err := g.moveChild(&kids[i], into); err != nil {
			return err
		}
	}

	var events []models.FamilyEvent
	if err := g.tx.Where("family_id = ?", from).Find(&events).Error; err != nil {
		return errors.Wrap(err, "load family events")
	}
	for _, ev := range events {
		var clash int64
		err := g.tx.Model(&models.FamilyEvent{}).Where("family_id = ? AND event_type = ?", into, ev.Type).Count(&clash).Error
		if err != nil {
			return errors.Wrap(err, "check family event")
		}
		if clash > 0 {
			continue
		}
		ev.FamilyID = into
		if err := g.tx.Save(&ev).Error; err != nil {
			return err
		}
	}
	return g.deleteFamily(from)
}
