package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adgenix/adgenix-backend/internal/models"
)

func TestMetadataPatch_MergesInSQL(t *testing.T) {
	t.Parallel()

	patch, err := metadataPatch(models.Metadata{
		"gatewayReferenceNo": "GW-1",
	})
	require.NoError(t, err)

	// the merge has to happen inside the UPDATE itself, not as a Go-side
	// read-merge-write, so concurrent transitions keep each other's keys
	require.Equal(t, "COALESCE(metadata, '{}'::jsonb) || ?::jsonb", patch.SQL)
	require.Len(t, patch.Vars, 1)
	require.JSONEq(t, `{"gatewayReferenceNo":"GW-1"}`, patch.Vars[0].(string))
}

func TestMetadataPatch_NullColumnSafe(t *testing.T) {
	t.Parallel()

	patch, err := metadataPatch(models.Metadata{"k": "v"})
	require.NoError(t, err)

	// a row whose metadata was never set stores NULL; the expression must
	// coalesce it or the concatenation yields NULL and drops the patch
	require.Contains(t, patch.SQL, "COALESCE(metadata, '{}'::jsonb)")
}
