package ledger

import "sort"

// Snapshot is everything a report needs, already fetched from the document
// store. It is never mutated by the folds.
type Snapshot struct {
	Products []Product
	People   []Person
	Streams
}

// Product returns the product with the given id.
func (s Snapshot) Product(id ProductID) (Product, bool) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Batch returns the batch identified by key.
func (s Snapshot) Batch(key BatchKey) (Batch, bool) {
	p, ok := s.Product(key.ProductID)
	if !ok {
		return Batch{}, false
	}
	return p.Batch(key.BatchCode)
}

// Person returns the person with the given id.
func (s Snapshot) Person(id PersonID) (Person, bool) {
	for _, p := range s.People {
		if p.ID == id {
			return p, true
		}
	}
	return Person{}, false
}

// BatchKeys returns every (product, batch) pair in the snapshot, sorted.
func (s Snapshot) BatchKeys() []BatchKey {
	var keys []BatchKey
	for _, p := range s.Products {
		for _, b := range p.Batches {
			keys = append(keys, BatchKey{ProductID: p.ID, BatchCode: b.Code})
		}
	}
	sortKeys(keys)
	return keys
}

// ReferencedKeys returns every batch key that some movement line points at,
// sorted. Lines with incomplete references are not included.
func (s Streams) ReferencedKeys() []BatchKey {
	seen := make(map[BatchKey]bool)
	visit := func(lines []Line) {
		for _, l := range lines {
			if l.Key().Valid() {
				seen[l.Key()] = true
			}
		}
	}
	for _, p := range s.Purchases {
		visit(p.Lines)
	}
	for _, sale := range s.Sales {
		visit(sale.Lines)
	}
	for _, r := range s.SaleReturns {
		visit(r.Lines)
	}
	for _, r := range s.PurchaseReturns {
		visit(r.Lines)
	}
	for _, d := range s.Damages {
		if d.Key().Valid() {
			seen[d.Key()] = true
		}
	}

	keys := make([]BatchKey, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// ReferencedPeople returns every person id some money-moving record points
// at, sorted.
func (s Streams) ReferencedPeople() []PersonID {
	seen := make(map[PersonID]bool)
	mark := func(id PersonID) {
		if id != "" {
			seen[id] = true
		}
	}
	for _, p := range s.Purchases {
		mark(p.PersonID)
	}
	for _, sale := range s.Sales {
		mark(sale.PersonID)
	}
	for _, r := range s.SaleReturns {
		mark(r.PersonID)
	}
	for _, r := range s.PurchaseReturns {
		mark(r.PersonID)
	}
	for _, e := range s.ManualEntries {
		mark(e.PersonID)
	}

	ids := make([]PersonID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortKeys(keys []BatchKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ProductID != keys[j].ProductID {
			return keys[i].ProductID < keys[j].ProductID
		}
		return keys[i].BatchCode < keys[j].BatchCode
	})
}
