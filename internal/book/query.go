// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book

import (
	"fmt"
	"strings"

	"github.com/taibuivan/tosho/internal/platform/database/schema"
	"github.com/taibuivan/tosho/internal/platform/sec"
	"github.com/taibuivan/tosho/internal/tags"
)

// catalogQuery is the composed filter for a catalog listing: an
// optional bookmark join, a WHERE clause, recency ordering and the
// bound arguments. Empty marks a request that must yield no rows at
// all (anonymous callers asking for tag filters).
type catalogQuery struct {
	Join  string
	Where string
	Order string
	Args  []any
	Empty bool
}

// buildCatalogQuery composes the catalog predicates. The access tier
// is applied first and unconditionally; free-text fields require
// every word to match; tag groups are partitioned into the status
// vocabulary versus real tag names and combined with OR.
func buildCatalogQuery(filter Filter, viewer Viewer) catalogQuery {
	var query catalogQuery
	bind := func(value any) string {
		query.Args = append(query.Args, value)
		return fmt.Sprintf("$%d", len(query.Args))
	}

	var conditions []string

	// Access tier comes before everything else: non-admin callers only
	// ever see standard-tier books, whatever else they ask for.
	if !viewer.Tier().AtLeast(sec.RoleAdmin) {
		conditions = append(conditions,
			fmt.Sprintf("b.%s = %s", schema.RefBook.AccessLevel, bind(string(sec.RoleStandard))))
	}

	textFields := []struct {
		value  string
		column string
	}{
		{filter.Title, schema.RefBook.Title},
		{filter.Author, schema.RefBook.Author},
		{filter.Genre, schema.RefBook.Genre},
	}
	for _, field := range textFields {
		for _, word := range strings.Fields(field.value) {
			conditions = append(conditions,
				fmt.Sprintf("b.%s ILIKE %s", field.column, bind("%"+word+"%")))
		}
	}

	if len(filter.Tags) > 0 {
		if !viewer.Authenticated() {
			// Tag predicates are per-user state; without a user they
			// select nothing rather than failing.
			query.Empty = true
			return query
		}
		if group := tagConditions(filter, viewer, bind); group != "" {
			conditions = append(conditions, group)
		}
	}

	if viewer.Authenticated() {
		query.Join = fmt.Sprintf("LEFT JOIN %s bm ON bm.%s = b.%s AND bm.%s = %s",
			schema.RefBookmark.Table, schema.RefBookmark.BookFilename, schema.RefBook.Filename,
			schema.RefBookmark.UserID, bind(*viewer.UserID))
		query.Order = fmt.Sprintf("ORDER BY bm.%s DESC NULLS LAST, b.%s DESC",
			schema.RefBookmark.LastRead, schema.RefBook.CreatedAt)
	} else {
		query.Order = fmt.Sprintf("ORDER BY b.%s DESC", schema.RefBook.CreatedAt)
	}

	if len(conditions) > 0 {
		query.Where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return query
}

// tagConditions renders the ORed tag partitions. "Unread" matches
// books whose bookmark row is absent or still in the default state.
func tagConditions(filter Filter, viewer Viewer, bind func(any) string) string {
	partition := tags.PartitionNames(filter.Tags)
	userArg := bind(*viewer.UserID)

	var groups []string
	if partition.Unread {
		groups = append(groups, fmt.Sprintf(
			"NOT EXISTS (SELECT 1 FROM %s ub WHERE ub.%s = %s AND ub.%s = b.%s AND ub.%s <> %s)",
			schema.RefBookmark.Table,
			schema.RefBookmark.UserID, userArg,
			schema.RefBookmark.BookFilename, schema.RefBook.Filename,
			schema.RefBookmark.Status, bind(string(tags.StatusUnread))))
	}
	if len(partition.Statuses) > 0 {
		statuses := make([]string, 0, len(partition.Statuses))
		for _, status := range partition.Statuses {
			statuses = append(statuses, string(status))
		}
		groups = append(groups, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s sb WHERE sb.%s = %s AND sb.%s = b.%s AND sb.%s = ANY(%s))",
			schema.RefBookmark.Table,
			schema.RefBookmark.UserID, userArg,
			schema.RefBookmark.BookFilename, schema.RefBook.Filename,
			schema.RefBookmark.Status, bind(statuses)))
	}
	if len(partition.Names) > 0 {
		groups = append(groups, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s bt JOIN %s t ON t.%s = bt.%s WHERE bt.%s = b.%s AND bt.%s = %s AND t.%s = ANY(%s))",
			schema.RefBookTag.Table, schema.RefTag.Table,
			schema.RefTag.ID, schema.RefBookTag.TagID,
			schema.RefBookTag.BookFilename, schema.RefBook.Filename,
			schema.RefBookTag.UserID, userArg,
			schema.RefTag.Name, bind(partition.Names)))
	}
	if len(groups) == 0 {
		return ""
	}
	return "(" + strings.Join(groups, " OR ") + ")"
}
