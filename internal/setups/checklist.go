package setups

// Checklist entry keys shared across archetypes. Archetype-specific
// keys (range_hi, sweep, bos, ...) are declared where they are used.
const (
	CheckPreTrigger   = "pre_trigger"
	CheckCloseConfirm = "close_confirm"
	CheckRetest       = "retest"
	CheckBOS          = "bos"
	CheckSweep        = "sweep"
	CheckRangeHigh    = "range_hi"
	CheckRangeLow     = "range_lo"
	CheckFreshData    = "fresh_data"
)

// ChecklistItem is one named trigger precondition
type ChecklistItem struct {
	Key  string `json:"key"`
	OK   bool   `json:"ok"`
	Note string `json:"note"`
}

// UpsertChecklistItem inserts or updates an entry by key. The mutation
// is idempotent: when the ok state is unchanged the previous entry is
// preserved verbatim, including its note, so re-evaluating the same
// snapshot cannot produce spurious change notifications downstream.
func UpsertChecklistItem(list []ChecklistItem, key string, ok bool, note string) []ChecklistItem {
	for i := range list {
		if list[i].Key != key {
			continue
		}
		if list[i].OK == ok {
			return list
		}
		list[i].OK = ok
		list[i].Note = note
		return list
	}
	return append(list, ChecklistItem{Key: key, OK: ok, Note: note})
}

// ChecklistItemOK reports whether the keyed entry exists and passed
func ChecklistItemOK(list []ChecklistItem, key string) bool {
	for i := range list {
		if list[i].Key == key {
			return list[i].OK
		}
	}
	return false
}

// ChecklistProgress returns passed and total entry counts
func ChecklistProgress(list []ChecklistItem) (passed, total int) {
	for i := range list {
		if list[i].OK {
			passed++
		}
	}
	return passed, len(list)
}

// ChecklistBlockers returns the keys of failing entries
func ChecklistBlockers(list []ChecklistItem) []string {
	var blockers []string
	for i := range list {
		if !list[i].OK {
			blockers = append(blockers, list[i].Key)
		}
	}
	return blockers
}
