package flatten

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rediwo/redi-shape/meta"
	"github.com/rediwo/redi-shape/schema"
	"github.com/rediwo/redi-shape/types"
)

type tag struct {
	ID    int    `db:"id"`
	Label string `db:"label"`
}

func (*tag) ModelName() string { return "Tag" }

type post struct {
	ID    int    `db:"id"`
	Title string `db:"title"`
	Tags  []*tag `db:"tags"`
}

func (*post) ModelName() string { return "Post" }

type user struct {
	ID    int     `db:"id"`
	Name  string  `db:"name"`
	Tag   *tag    `db:"tag"`
	Posts []*post `db:"posts,reverse"`
	Score func() (int, error)
}

func (*user) ModelName() string { return "User" }

func (u *user) DisplayName() string { return strings.ToUpper(u.Name) }

type badge struct {
	ID int `db:"id"`
}

func (*badge) ModelName() string { return "Badge" }

type member struct {
	ID    int    `db:"id"`
	Badge *badge `db:"badge"`
}

func (*member) ModelName() string { return "Member" }

// partialProjector projects in the store but cannot reach relations
type partialProjector struct {
	*types.Slice
	calls int
}

func (p *partialProjector) ValuesList(ctx context.Context, accessors []string) ([][]any, error) {
	p.calls++
	for _, accessor := range accessors {
		if accessor == "tag" {
			return nil, fmt.Errorf("%w: %q", types.ErrFieldNotFound, accessor)
		}
	}
	return nil, errBoom
}

type node struct {
	ID     int   `db:"id"`
	Parent *node `db:"parent"`
}

func (*node) ModelName() string { return "Node" }

type postManager struct {
	posts []*post
	err   error
}

func (m postManager) All(ctx context.Context) (types.Collection, error) {
	if m.err != nil {
		return nil, m.err
	}
	return types.SliceOf("Post", m.posts)
}

type author struct {
	ID       int         `db:"id"`
	Articles postManager `db:"articles,reverse,model=Post"`
}

func (*author) ModelName() string { return "Author" }

var errBoom = errors.New("boom")

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	resolver := meta.NewResolver(schema.NewRegistry())
	return New(append([]Option{WithResolver(resolver)}, opts...)...)
}

func sampleUser() *user {
	return &user{ID: 1, Name: "a", Tag: &tag{ID: 9, Label: "x"}}
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
