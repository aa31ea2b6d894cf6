package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = stderrors.New("sentinel")

func TestBuilder_WrapsCauseForErrorsIs(t *testing.T) {
	err := ResourceError("failed to load resource").
		WithContext("path", "resources/blog/a.md").
		WithCause(errSentinel).
		Build()

	require.ErrorIs(t, err, errSentinel)
	assert.Equal(t, CategoryResource, err.Category())
	assert.Equal(t, "[resource] failed to load resource: sentinel", err.Error())

	path, ok := err.Context().GetString("path")
	require.True(t, ok)
	assert.Equal(t, "resources/blog/a.md", path)
}

func TestAsClassified_FindsWrappedError(t *testing.T) {
	inner := ConfigError("missing code theme").Build()
	outer := fmt.Errorf("reload: %w", inner)

	c, ok := AsClassified(outer)
	require.True(t, ok)
	assert.True(t, c.IsFatal())
	assert.True(t, HasCategory(outer, CategoryConfig))
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
}

func TestWithContext_DoesNotMutateOriginal(t *testing.T) {
	base := NewError(CategoryTemplate, "render failed").Build()
	derived := base.WithContext("template", "base")

	_, ok := base.Context().Get("template")
	assert.False(t, ok)
	v, ok := derived.Context().Get("template")
	require.True(t, ok)
	assert.Equal(t, "base", v)
}

func TestClassifiedError_IsMatchesCategoryAndMessage(t *testing.T) {
	a := FeedError("invalid feed").WithContext("n", 1).Build()
	b := FeedError("invalid feed").Build()
	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, FeedError("other").Build()))
}

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	assert.Equal(t, 0, a.ExitCodeFor(nil))
	assert.Equal(t, 1, a.ExitCodeFor(stderrors.New("x")))
	assert.Equal(t, 7, a.ExitCodeFor(ConfigError("bad").Build()))
	assert.Equal(t, 11, a.ExitCodeFor(FrontMatterError("bad").Build()))
	assert.Equal(t, "Error: bad: sentinel", a.FormatError(FrontMatterError("bad").WithCause(errSentinel).Build()))
}

func TestHTTPErrorAdapter_WritesStatusAndMessage(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	a.WriteErrorResponse(rec, req, NewError(CategoryNotFound, "no such page").Build())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no such page", rec.Body.String())
}
