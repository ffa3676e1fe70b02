package mongoutil

import (
	"errors"
	"testing"

	"CollabNotes/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestValidateAndSetDefaults(t *testing.T) {
	c := &Config{Address: []string{"db1:27017", "db2:27017"}, Database: "notes", Username: "root", Password: "pw"}
	require.NoError(t, c.ValidateAndSetDefaults())
	assert.Equal(t, defaultMaxPoolSize, c.MaxPoolSize)
	assert.Equal(t, defaultMaxRetry, c.MaxRetry)
	assert.Equal(t, "mongodb://root:pw@db1:27017,db2:27017/notes?authSource=notes&maxPoolSize=100", c.Uri)

	assert.Error(t, (&Config{Database: "notes"}).ValidateAndSetDefaults())
	assert.Error(t, (&Config{Uri: "mongodb://x"}).ValidateAndSetDefaults())
}

func TestObjectIDHelpers(t *testing.T) {
	oid := primitive.NewObjectID()
	got, ok := ObjectID(oid.Hex())
	require.True(t, ok)
	assert.Equal(t, oid, got)

	_, ok = ObjectID("not-hex")
	assert.False(t, ok)

	assert.Equal(t, []primitive.ObjectID{oid}, ObjectIDs([]string{"bad", oid.Hex()}))
	assert.Equal(t, []string{oid.Hex()}, Hexes([]primitive.ObjectID{oid}))
}

func TestNotFoundOr(t *testing.T) {
	assert.True(t, errors.Is(NotFoundOr(mongo.ErrNoDocuments, "note"), errs.ErrNotFound))

	other := NotFoundOr(errors.New("socket closed"), "note")
	assert.False(t, errors.Is(other, errs.ErrNotFound))
	assert.Equal(t, errs.ServerInternalError, errs.CodeOf(other))
}
