// Package catalog implements the merge/upsert engine: product-code
// uniqueness on the shared database, resolution of client item references,
// and the item mutations used by the editing workflow.
package catalog

import (
	"github.com/svpecas/catalogd/internal/domain"
)

// ResolveOptions controls how ResolveClientItems joins embedded snapshots
// against the shared database.
type ResolveOptions struct {
	// PreferEmbedded keeps the embedded snapshot when its code also exists
	// in the shared database. When false the shared record wins and the
	// snapshot only fills in on a database miss.
	PreferEmbedded bool
}

// UpsertProduct inserts rec or, when its code already exists, replaces that
// entry in place so the database keeps its order. Calling twice with the
// same record is a no-op the second time.
func UpsertProduct(db domain.ProductDatabase, rec domain.ProductRecord) domain.ProductDatabase {
	for i := range db {
		if db[i].Code == rec.Code {
			db[i] = rec
			return db
		}
	}
	return append(db, rec)
}

// FindProduct looks a record up by code.
func FindProduct(db domain.ProductDatabase, code string) (domain.ProductRecord, bool) {
	for _, p := range db {
		if p.Code == code {
			return p, true
		}
	}
	return domain.ProductRecord{}, false
}

// RemoveProduct drops the record with the given code, preserving the order
// of the rest. Returns the database unchanged when the code is absent.
func RemoveProduct(db domain.ProductDatabase, code string) (domain.ProductDatabase, bool) {
	for i := range db {
		if db[i].Code == code {
			return append(db[:i:i], db[i+1:]...), true
		}
	}
	return db, false
}

// ResolveClientItems joins the catalog's item references against the shared
// database. Embedded snapshots are included directly (subject to opts);
// bare codes are looked up, and misses land in missingCodes instead of
// failing the call. Input order is preserved in the resolved output.
func ResolveClientItems(cat *domain.ClientCatalog, db domain.ProductDatabase, opts ResolveOptions) (resolved []domain.ResolvedItem, missingCodes []string) {
	for _, item := range cat.Items {
		if item.Embedded() {
			rec := *item.Snapshot
			rec.Code = item.Code
			fromSnapshot := true
			if !opts.PreferEmbedded {
				if shared, found := FindProduct(db, item.Code); found {
					rec = shared
					fromSnapshot = false
				}
			}
			resolved = append(resolved, domain.ResolvedItem{ProductRecord: rec, FromSnapshot: fromSnapshot})
			continue
		}
		shared, found := FindProduct(db, item.Code)
		if !found {
			missingCodes = append(missingCodes, item.Code)
			continue
		}
		shared.Code = item.Code
		resolved = append(resolved, domain.ResolvedItem{ProductRecord: shared})
	}
	return resolved, missingCodes
}

// AddItemToCatalog appends the reference. Duplicates are allowed: the same
// code twice means two order lines.
func AddItemToCatalog(cat *domain.ClientCatalog, item domain.ItemRef) {
	cat.Items = append(cat.Items, item)
}

// RemoveItemFromCatalog removes exactly the item at index, shifting later
// items down by one. An invalid index leaves the catalog unmodified.
func RemoveItemFromCatalog(cat *domain.ClientCatalog, index int) error {
	if index < 0 || index >= len(cat.Items) {
		return &domain.IndexOutOfRangeError{Index: index, Len: len(cat.Items)}
	}
	cat.Items = append(cat.Items[:index], cat.Items[index+1:]...)
	return nil
}

// RemoveItemsFromCatalog removes a batch of indices in one pass, applying
// them in descending order so earlier removals don't shift later ones. Any
// invalid index fails the whole batch before anything is removed.
func RemoveItemsFromCatalog(cat *domain.ClientCatalog, indices []int) error {
	for _, idx := range indices {
		if idx < 0 || idx >= len(cat.Items) {
			return &domain.IndexOutOfRangeError{Index: idx, Len: len(cat.Items)}
		}
	}
	sorted := append([]int(nil), indices...)
	// Descending insertion sort; batches are tiny.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] > sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	prev := -1
	for _, idx := range sorted {
		if idx == prev {
			continue
		}
		prev = idx
		cat.Items = append(cat.Items[:idx], cat.Items[idx+1:]...)
	}
	return nil
}

// RenameClient changes the display name only. The storage key is not
// touched here; callers that want the document moved use the repository's
// RenameAndMigrate.
func RenameClient(cat *domain.ClientCatalog, newName string) {
	cat.ClientName = newName
}
