package reqctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithAndFrom(t *testing.T) {
	rc := New("10.0.0.1", "agent/1.0")
	ctx := With(context.Background(), rc)

	got := From(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "10.0.0.1", got.IPAddress())
	assert.Equal(t, "agent/1.0", got.UserAgent())
	assert.NotEmpty(t, got.RequestID())
}

func TestFrom_MissingContext(t *testing.T) {
	assert.Nil(t, From(context.Background()))

	// Accessors are nil-safe.
	assert.Empty(t, OrganizationID(context.Background()))
	assert.Empty(t, UserID(context.Background()))
	assert.Empty(t, APIKeyID(context.Background()))
}

func TestMutationVisibleThroughContext(t *testing.T) {
	rc := New("", "")
	ctx := With(context.Background(), rc)

	// Auth runs after the context is attached; continuations holding ctx
	// must observe the values it filled in.
	rc.SetUserID("user-1")
	rc.SetOrganizationID("org-1")
	rc.SetAPIKeyID("key-1")

	assert.Equal(t, "user-1", UserID(ctx))
	assert.Equal(t, "org-1", OrganizationID(ctx))
	assert.Equal(t, "key-1", APIKeyID(ctx))
}

func TestRequestIDsAreUnique(t *testing.T) {
	a := New("", "")
	b := New("", "")
	assert.NotEqual(t, a.RequestID(), b.RequestID())
}
