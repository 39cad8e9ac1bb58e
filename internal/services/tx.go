package services

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vikasavnish/heirloom/internal/cache"
	"github.com/vikasavnish/heirloom/internal/utils"
)

// inTx runs fn inside one transaction. Nothing fn wrote survives an error or
// a panic.
func inTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "failed to start transaction")
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = fmt.Errorf("transaction aborted: %v", r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// invalidate drops the cached export of a tree after a committed change. A
// cache failure is logged but never fails the mutation.
func invalidate(ctx context.Context, c cache.ExportCache, treeID uint) {
	if err := c.Invalidate(ctx, treeID); err != nil {
		utils.Logger(ctx).WithError(err).WithField("tree_id", treeID).Warn("Failed to invalidate export cache")
	}
}
