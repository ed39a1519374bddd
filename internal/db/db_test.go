package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForeignKeysEnforced(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.Exec(`INSERT INTO product_models (name, category_id) VALUES ('Orphan', 999)`)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err), "expected foreign key violation, got %v", err)
	assert.False(t, IsUniqueViolation(err))
}

func TestUniqueViolation(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.Exec(`INSERT INTO categories (name) VALUES ('Router')`)
	require.NoError(t, err)

	_, err = database.Exec(`INSERT INTO categories (name) VALUES ('Router')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "expected unique violation, got %v", err)
	assert.False(t, IsForeignKeyViolation(err))
}

func TestConstraintHelpersIgnoreOtherErrors(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsForeignKeyViolation(errors.New("boom")))
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	database := NewTestDB(t)
	require.NoError(t, EnsureSchema(database))
}
