package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds SELECT ... FOR UPDATE to the query so concurrent
// transactions in other processes block on the same row instead of
// interleaving read-modify-write cycles. SQLite has no FOR UPDATE
// syntax; its single-writer lock already serializes writers, so the
// clause is skipped there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
