package catalog

// Kind tells base games and expansions apart.
type Kind int

const (
	KindBase Kind = iota
	KindExpansion
)

func (k Kind) String() string {
	if k == KindExpansion {
		return "expansion"
	}
	return "base"
}

// Classification is the result of Classify. BaseID is only set for
// expansions.
type Classification struct {
	Kind   Kind
	BaseID GameID
}

// Classify decides whether metadata describes an expansion, keyed strictly
// on the presence of Expands.
func Classify(meta GameMetadata) Classification {
	if meta.Expands == nil {
		return Classification{Kind: KindBase}
	}
	return Classification{Kind: KindExpansion, BaseID: *meta.Expands}
}

// ledger holds expansions waiting for their base game. It is not safe for
// concurrent use; Store guards it with the same mutex as the records.
type ledger map[GameID][]ExpansionRef

// queue appends ref under base unless it is already waiting there.
func (l ledger) queue(base GameID, ref ExpansionRef) bool {
	for _, existing := range l[base] {
		if existing.GameID == ref.GameID {
			return false
		}
	}
	l[base] = append(l[base], ref)
	return true
}

// drain moves every reference waiting for the record's game into it and
// forgets the ledger entry.
func (l ledger) drain(record *MergedGameRecord) int {
	pending, ok := l[record.GameID]
	if !ok {
		return 0
	}
	delete(l, record.GameID)
	moved := 0
	for _, ref := range pending {
		if record.HasExpansion(ref.GameID) {
			continue
		}
		record.Expansions = append(record.Expansions, ref)
		moved++
	}
	return moved
}
