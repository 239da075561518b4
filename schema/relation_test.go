package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJunctionTableName(t *testing.T) {
	tests := []struct {
		a, b     string
		expected string
	}{
		{"Post", "Tag", "post_tags"},
		{"Tag", "Post", "post_tags"},
		{"User", "User", "user_users"},
		{"Category", "Product", "category_products"},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetJunctionTableName(tt.a, tt.b))
		})
	}
}

func TestRelation_IsToMany(t *testing.T) {
	assert.True(t, Relation{Type: RelationOneToMany}.IsToMany())
	assert.True(t, Relation{Type: RelationManyToMany}.IsToMany())
	assert.False(t, Relation{Type: RelationManyToOne}.IsToMany())
	assert.False(t, Relation{Type: RelationOneToOne}.IsToMany())
}

func TestRelation_Normalize(t *testing.T) {
	user := New("User").
		AddField(NewField("id").Int().PrimaryKey().Build()).
		AddField(NewField("tagId").Int().Build())
	tag := New("Tag").
		AddField(NewField("id").Int().PrimaryKey().Build())
	post := New("Post").
		AddField(NewField("id").Int().PrimaryKey().Build()).
		AddField(NewField("userId").Int().Build())

	t.Run("manyToOne defaults references", func(t *testing.T) {
		rel, err := Relation{Type: RelationManyToOne, Model: "Tag", ForeignKey: "tagId"}.Normalize(user, tag)
		require.NoError(t, err)
		assert.Equal(t, "id", rel.References)
	})

	t.Run("manyToOne missing foreign key", func(t *testing.T) {
		_, err := Relation{Type: RelationManyToOne, Model: "Tag", ForeignKey: "labelId"}.Normalize(user, tag)
		assert.ErrorContains(t, err, "foreign key field labelId")
	})

	t.Run("oneToMany derives foreign key", func(t *testing.T) {
		rel, err := Relation{Type: RelationOneToMany, Model: "Post"}.Normalize(user, post)
		require.NoError(t, err)
		assert.Equal(t, "userId", rel.ForeignKey)
		assert.Equal(t, "id", rel.References)
	})

	t.Run("oneToOne picks side holding the key", func(t *testing.T) {
		rel, err := Relation{Type: RelationOneToOne, Model: "Post", ForeignKey: "userId"}.Normalize(user, post)
		require.NoError(t, err)
		assert.Equal(t, "id", rel.References)

		_, err = Relation{Type: RelationOneToOne, Model: "Post", ForeignKey: "nope"}.Normalize(user, post)
		assert.Error(t, err)
	})

	t.Run("manyToMany junction defaults", func(t *testing.T) {
		rel, err := Relation{Type: RelationManyToMany, Model: "Tag"}.Normalize(user, tag)
		require.NoError(t, err)
		assert.Equal(t, "tag_users", rel.Through)
		assert.Equal(t, "user_id", rel.ForeignKey)
		assert.Equal(t, "tag_id", rel.References)
	})

	t.Run("missing related schema", func(t *testing.T) {
		_, err := Relation{Type: RelationManyToOne, Model: "Ghost"}.Normalize(user, nil)
		assert.ErrorContains(t, err, "Ghost")
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	user := New("User").
		AddField(NewField("id").Int().PrimaryKey().Build()).
		AddRelation("posts", Relation{Type: RelationOneToMany, Model: "Post"})
	post := New("Post").
		AddField(NewField("id").Int().PrimaryKey().Build()).
		AddField(NewField("userId").Int().Build())

	require.NoError(t, r.Register(user, post))
	assert.Equal(t, []string{"Post", "User"}, r.Names())

	got, err := r.GetSchema("User")
	require.NoError(t, err)
	assert.Same(t, user, got)

	_, err = r.GetSchema("Ghost")
	assert.ErrorContains(t, err, "not registered")

	rel, err := r.Relation("User", "posts")
	require.NoError(t, err)
	assert.Equal(t, "userId", rel.ForeignKey)

	_, err = r.Relation("User", "comments")
	assert.Error(t, err)

	assert.Error(t, r.Register(New("Broken")))
}
