package schema

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tagModel struct {
	ID    int    `db:"id,pk"`
	Label string `db:"label"`
}

func (tagModel) ModelName() string { return "Tag" }

type userModel struct {
	ID        int         `json:"id"`
	FirstName string      // derived as first_name
	Email     *string     `db:"email"`
	Secret    string      `db:"-"`
	Tag       *tagModel   `db:"tag"`
	Groups    []tagModel  `db:"groups"`
	Posts     []*tagModel `db:"posts,reverse"`
	Comments  any         `db:"comments,reverse,model=Comment"`
	Hook      func() string
	internal  int //nolint:unused
}

func (*userModel) ModelName() string { return "User" }

type plain struct {
	Key   string `db:"key,pk,unique"`
	Count int    `db:"count,null"`
}

func TestModelNameOf(t *testing.T) {
	assert.Equal(t, "Tag", ModelNameOf(typeOf[tagModel]()))
	assert.Equal(t, "Tag", ModelNameOf(typeOf[*tagModel]()))
	assert.Equal(t, "User", ModelNameOf(typeOf[userModel]()))
	assert.Equal(t, "User", ModelNameOf(typeOf[*userModel]()))
	assert.Equal(t, "plain", ModelNameOf(typeOf[plain]()))
}

func TestFromStruct(t *testing.T) {
	s, err := FromStruct(&userModel{})
	require.NoError(t, err)

	assert.Equal(t, "User", s.Name)
	assert.Equal(t, []string{"id", "first_name", "email"}, s.FieldNames())
	assert.Equal(t, []string{"id"}, s.PrimaryKeyFields())

	email, err := s.GetField("email")
	require.NoError(t, err)
	assert.True(t, email.Nullable)

	assert.Equal(t, []string{"tag", "groups", "posts", "comments"}, s.RelationNames())
	assert.Equal(t, RelationManyToOne, s.Relations["tag"].Type)
	assert.Equal(t, "Tag", s.Relations["tag"].Model)
	assert.Equal(t, RelationManyToMany, s.Relations["groups"].Type)
	assert.Equal(t, RelationOneToMany, s.Relations["posts"].Type)
	assert.Equal(t, "Comment", s.Relations["comments"].Model)
	assert.True(t, s.IsReverseRelation("comments"))
}

func TestFromStruct_Options(t *testing.T) {
	s, err := FromStruct(plain{})
	require.NoError(t, err)

	key, err := s.GetField("key")
	require.NoError(t, err)
	assert.True(t, key.PrimaryKey)
	assert.True(t, key.Unique)

	count, err := s.GetField("count")
	require.NoError(t, err)
	assert.True(t, count.Nullable)
	assert.Equal(t, FieldTypeInt, count.Type)
}

func TestFromStruct_NotStruct(t *testing.T) {
	_, err := FromStruct(42)
	assert.ErrorContains(t, err, "not a struct")

	_, err = FromType(nil)
	assert.Error(t, err)
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
