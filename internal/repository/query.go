package repository

import (
	"fmt"
	"strings"

	"github.com/nurpe/fleetwatch/internal/model"
)

// whereWindow appends the bounds of w that are set, as conditions on column.
func whereWindow(column string, w model.TimeWindow, filters []string, args []interface{}) ([]string, []interface{}) {
	if !w.From.IsZero() {
		filters = append(filters, fmt.Sprintf("%s >= ?", column))
		args = append(args, w.From)
	}
	if !w.To.IsZero() {
		filters = append(filters, fmt.Sprintf("%s <= ?", column))
		args = append(args, w.To)
	}
	return filters, args
}

func buildQuery(base string, filters []string, order string, limit int, args []interface{}) (string, []interface{}) {
	if len(filters) > 0 {
		base += " WHERE " + strings.Join(filters, " AND ")
	}
	base += " ORDER BY " + order
	if limit > 0 {
		base += " LIMIT ?"
		args = append(args, limit)
	}
	return base, args
}
