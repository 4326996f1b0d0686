package objectkey

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatGenerator(t *testing.T) {
	id := uuid.MustParse("abcdef12-3456-7890-abcd-ef1234567890")
	key := NewFlatGenerator().GenerateKey(id, &KeyMetadata{Prefix: "projects/screenshots", Extension: ".PNG"})

	assert.Equal(t, "portfolio/projects/screenshots/abcdef12-3456-7890-abcd-ef1234567890.png", key)
}

func TestGitLikeGenerator(t *testing.T) {
	id := uuid.MustParse("abcdef12-3456-7890-abcd-ef1234567890")
	key := NewGitLikeGenerator().GenerateKey(id, &KeyMetadata{Prefix: "hero", Extension: ".jpg"})

	assert.Equal(t, "portfolio/hero/ab/cdef1234567890abcdef1234567890.jpg", key)
}

func TestGenerators_NeverEscapeRoot(t *testing.T) {
	id := uuid.New()
	for _, g := range []Generator{NewFlatGenerator(), NewGitLikeGenerator()} {
		key := g.GenerateKey(id, &KeyMetadata{Prefix: "../../etc", Extension: "./../passwd"})
		assert.True(t, strings.HasPrefix(key, Root+"/"), key)
		assert.NotContains(t, key, "..")
	}
}

func TestGenerators_NilMetadata(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "portfolio/"+id.String(), NewFlatGenerator().GenerateKey(id, nil))
}

func TestForLayout(t *testing.T) {
	g, err := ForLayout("")
	require.NoError(t, err)
	assert.IsType(t, &FlatGenerator{}, g)

	g, err = ForLayout("sharded")
	require.NoError(t, err)
	assert.IsType(t, &GitLikeGenerator{}, g)

	_, err = ForLayout("nested")
	assert.Error(t, err)
}
