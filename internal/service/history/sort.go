package history

import (
	"cmp"
	"slices"

	"autodocvision/internal/model"
)

func sortNewestFirst(entries []model.HistoryEntry) {
	slices.SortStableFunc(entries, func(a, b model.HistoryEntry) int {
		return cmp.Compare(b.ID, a.ID)
	})
}
