// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tosho/internal/platform/sec"
)

func standardViewer(t *testing.T) Viewer {
	t.Helper()
	id := uuid.New()
	return Viewer{UserID: &id, Role: sec.RoleStandard}
}

/*
TestBuildCatalogQuery_AccessTier verifies that the tier restriction is
always present for non-admin callers and absent for admins.
*/
func TestBuildCatalogQuery_AccessTier(t *testing.T) {
	// 1. Anonymous browsing is restricted to the standard tier
	composed := buildCatalogQuery(Filter{}, Viewer{})
	assert.Contains(t, composed.Where, "accesslevel = $1")
	assert.Equal(t, []any{"standard"}, composed.Args)
	assert.Contains(t, composed.Order, "createdat DESC")
	assert.Empty(t, composed.Join)

	// 2. Admins see every tier
	adminID := uuid.New()
	composed = buildCatalogQuery(Filter{}, Viewer{UserID: &adminID, Role: sec.RoleAdmin})
	assert.NotContains(t, composed.Where, "accesslevel")
}

/*
TestBuildCatalogQuery_FreeText verifies per-field word matching.
*/
func TestBuildCatalogQuery_FreeText(t *testing.T) {
	composed := buildCatalogQuery(Filter{Title: "war peace", Author: "tolstoy"}, Viewer{})

	// 1. Every word becomes its own ANDed ILIKE predicate
	assert.Contains(t, composed.Where, "title ILIKE")
	assert.Contains(t, composed.Where, "author ILIKE")
	assert.Contains(t, composed.Args, "%war%")
	assert.Contains(t, composed.Args, "%peace%")
	assert.Contains(t, composed.Args, "%tolstoy%")

	// 2. Predicates join with AND, never OR
	assert.NotContains(t, composed.Where, " OR ")
}

/*
TestBuildCatalogQuery_AnonymousTags verifies the empty-result
sentinel: tag filters without a user select nothing at all.
*/
func TestBuildCatalogQuery_AnonymousTags(t *testing.T) {
	composed := buildCatalogQuery(Filter{Tags: []string{"fantasy"}}, Viewer{})
	assert.True(t, composed.Empty)
}

/*
TestBuildCatalogQuery_TagPartitions verifies that status vocabulary
and tag names form ORed groups, with "Unread" matching row absence.
*/
func TestBuildCatalogQuery_TagPartitions(t *testing.T) {
	viewer := standardViewer(t)
	composed := buildCatalogQuery(Filter{Tags: []string{"Unread", "Finished", "fantasy"}}, viewer)

	require.False(t, composed.Empty)

	// 1. Absence of a bookmark row still counts as Unread
	assert.Contains(t, composed.Where, "NOT EXISTS")

	// 2. Status and name partitions are ORed together
	assert.Contains(t, composed.Where, " OR ")
	assert.Contains(t, composed.Args, []string{"Finished"})
	assert.Contains(t, composed.Args, []string{"fantasy"})

	// 3. The caller's identity scopes every group
	assert.Contains(t, composed.Args, *viewer.UserID)
}

/*
TestBuildCatalogQuery_RecencyOrder verifies that authenticated
listings sort by reading recency before catalog age.
*/
func TestBuildCatalogQuery_RecencyOrder(t *testing.T) {
	composed := buildCatalogQuery(Filter{}, standardViewer(t))

	assert.Contains(t, composed.Join, "LEFT JOIN core.bookmark")
	assert.Contains(t, composed.Order, "lastread DESC NULLS LAST")
	assert.Contains(t, composed.Order, "createdat DESC")
}
