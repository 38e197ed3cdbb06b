// pkg/cleaner/dedup.go
package cleaner

import (
	"database/sql"

	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

// Deduplicate keeps one record per primary key: the one with the most recent Recency date.
// Records without a recency date rank last and ties keep the first-seen record, which gives
// the same survivor as a stable sort on (key, recency desc) followed by taking the first row.
// Survivors keep their input order. Records with an empty key are expected to be removed
// before this is called.
func Deduplicate[C model.Record](rows []C) (survivors []C, dropped []C) {
	best := make(map[string]int, len(rows))
	for i, row := range rows {
		j, seen := best[row.Key()]
		if !seen || moreRecent(row.Recency(), rows[j].Recency()) {
			best[row.Key()] = i
		}
	}

	survivors = make([]C, 0, len(best))
	for i, row := range rows {
		if best[row.Key()] == i {
			survivors = append(survivors, row)
		} else {
			dropped = append(dropped, row)
		}
	}
	return survivors, dropped
}

// moreRecent reports whether a strictly outranks b
func moreRecent(a, b sql.NullTime) bool {
	if !a.Valid {
		return false
	}
	if !b.Valid {
		return true
	}
	return a.Time.After(b.Time)
}
