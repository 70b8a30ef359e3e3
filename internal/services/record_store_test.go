package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestListLimits_Clamp(t *testing.T) {
	l := ListLimits{Default: 100, Max: 500}
	assert.Equal(t, 100, l.Clamp(0))
	assert.Equal(t, 100, l.Clamp(-3))
	assert.Equal(t, 20, l.Clamp(20))
	assert.Equal(t, 500, l.Clamp(501))
	assert.Equal(t, 500, l.Clamp(100000))

	assert.Equal(t, 100, ListLimits{}.Clamp(0))
}

func TestSearchFilter(t *testing.T) {
	assert.Nil(t, searchFilter("   ", "name"))

	f := searchFilter("a.b+c", "name", "email")
	or, ok := f["$or"].(bson.A)
	assert.True(t, ok)
	assert.Len(t, or, 2)
	assert.Equal(t, bson.M{"name": bson.M{"$regex": `a\.b\+c`, "$options": "i"}}, or[0])
}

func TestNormalizeID(t *testing.T) {
	id, err := normalizeID(" 0000000abc ")
	assert.NoError(t, err)
	assert.Equal(t, "0000000ABC", id)

	_, err = normalizeID("short")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = normalizeID("")
	assert.ErrorIs(t, err, ErrNotFound)
}
