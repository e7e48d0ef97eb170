package catalog

import (
	"sort"
	"sync"
)

// MergeOutcome describes what MergeOwnedGame did with an owned game.
type MergeOutcome int

const (
	// OutcomeCreated means a new record was inserted.
	OutcomeCreated MergeOutcome = iota
	// OutcomeMerged means the owner and plays were added to an existing record.
	OutcomeMerged
	// OutcomeDuplicate means the owner had already been merged for this game.
	OutcomeDuplicate
	// OutcomeAttached means the game was an expansion and joined its base record.
	OutcomeAttached
	// OutcomeQueued means the game was an expansion whose base is not known yet.
	OutcomeQueued
)

func (o MergeOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeMerged:
		return "merged"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeAttached:
		return "attached"
	case OutcomeQueued:
		return "queued"
	}
	return "unknown"
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithOwnerOrder makes Snapshot list owners in the given order instead of
// the order their tasks happened to merge. Owners not in the list follow,
// sorted by name.
func WithOwnerOrder(owners []string) StoreOption {
	return func(s *Store) {
		for i, owner := range owners {
			if _, seen := s.ownerRank[owner]; !seen {
				s.ownerRank[owner] = i
			}
		}
	}
}

// Store is the catalog shared by every per-user task of one run. Records
// and the pending-expansion ledger sit behind a single mutex and no method
// blocks while holding it.
type Store struct {
	mu        sync.Mutex
	records   map[GameID]*MergedGameRecord
	pending   ledger
	ownerRank map[string]int
}

// NewStore returns an empty catalog.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		records:   make(map[GameID]*MergedGameRecord),
		pending:   make(ledger),
		ownerRank: make(map[string]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// MergeOwnedGame folds one owned game of owner into the catalog. Unknown
// games get a new record and collect any expansions already waiting for
// them. Known games gain the owner and the owner's plays once; merging the
// same owner again changes nothing. Metadata that declares a base game is
// routed to AttachOrQueue instead of creating a record.
func (s *Store) MergeOwnedGame(item RawOwnedItem, meta GameMetadata, owner string) MergeOutcome {
	if c := Classify(meta); c.Kind == KindExpansion {
		return s.AttachOrQueue(meta, c.BaseID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[item.GameID]
	if !ok {
		record = newRecord(meta, item, owner)
		s.records[item.GameID] = record
		s.pending.drain(record)
		return OutcomeCreated
	}
	if record.HasOwner(owner) {
		return OutcomeDuplicate
	}
	record.Owners = append(record.Owners, owner)
	if item.PlayCount > 0 {
		record.TotalPlays += item.PlayCount
	}
	return OutcomeMerged
}

// AttachOrQueue links an expansion to its base game's record, or parks it
// in the ledger until the base game is merged. Repeated deliveries of the
// same expansion are ignored.
func (s *Store) AttachOrQueue(expansion GameMetadata, base GameID) MergeOutcome {
	ref := refFor(expansion)

	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.records[base]; ok {
		if !record.HasExpansion(ref.GameID) {
			record.Expansions = append(record.Expansions, ref)
		}
		return OutcomeAttached
	}
	s.pending.queue(base, ref)
	return OutcomeQueued
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Record returns a copy of the record for id.
func (s *Store) Record(id GameID) (MergedGameRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return MergedGameRecord{}, false
	}
	return s.export(record), true
}

// Pending returns a copy of the expansions still waiting for base.
func (s *Store) Pending(base GameID) []ExpansionRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs, ok := s.pending[base]
	if !ok {
		return nil
	}
	return append([]ExpansionRef(nil), refs...)
}

// PendingBases lists, in ascending order, the base games that queued
// expansions are still waiting for.
func (s *Store) PendingBases() []GameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	bases := make([]GameID, 0, len(s.pending))
	for base := range s.pending {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	return bases
}

// Snapshot returns copies of every record ordered by name, then id.
// Expansions are ordered the same way so the result does not depend on
// which task attached them first.
func (s *Store) Snapshot() []MergedGameRecord {
	s.mu.Lock()
	out := make([]MergedGameRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, s.export(record))
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].GameID < out[j].GameID
	})
	return out
}

// export must be called with s.mu held.
func (s *Store) export(record *MergedGameRecord) MergedGameRecord {
	out := record.clone()
	sort.SliceStable(out.Expansions, func(i, j int) bool {
		if out.Expansions[i].Name != out.Expansions[j].Name {
			return out.Expansions[i].Name < out.Expansions[j].Name
		}
		return out.Expansions[i].GameID < out.Expansions[j].GameID
	})
	if len(s.ownerRank) > 0 {
		sort.SliceStable(out.Owners, func(i, j int) bool {
			ri, iok := s.ownerRank[out.Owners[i]]
			rj, jok := s.ownerRank[out.Owners[j]]
			switch {
			case iok && jok:
				return ri < rj
			case iok != jok:
				return iok
			}
			return out.Owners[i] < out.Owners[j]
		})
	}
	return out
}
