package services

import (
	"context"
	"testing"

	"github.com/sauravkrkushwaha/BoloSign/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditAppendAndTrailOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.audit.Append(ctx, "doc-a", models.ActionUploaded, `{"size":42}`))
	require.NoError(t, env.audit.Append(ctx, "doc-a", models.ActionSigned, `{"drawn":1}`))
	require.NoError(t, env.audit.Append(ctx, "doc-b", models.ActionUploaded, `{}`))

	record, entries, err := env.audit.DocumentTrail(ctx, "doc-a")
	require.NoError(t, err)
	assert.Nil(t, record, "no document record was ever created for this id")
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionUploaded, entries[0].Action)
	assert.Equal(t, models.ActionSigned, entries[1].Action)
}

func TestAuditTrailUnknownDocument(t *testing.T) {
	env := newTestEnv(t)

	record, entries, err := env.audit.DocumentTrail(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, entries)
}
