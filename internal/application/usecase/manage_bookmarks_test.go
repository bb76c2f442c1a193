package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kiwix/kiwix-reader/internal/application/usecase"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	repomocks "github.com/kiwix/kiwix-reader/internal/domain/repository/mocks"
)

func TestManageBookmarksUseCase_Toggle_AddsWhenMissing(t *testing.T) {
	ctx := testContext()
	repo := repomocks.NewMockBookmarkRepository(t)

	repo.EXPECT().IsBookmarked(mock.Anything, entity.SourceID("wiki"), "https://kiwix.app/A").Return(false, nil)
	repo.EXPECT().Save(mock.Anything, mock.AnythingOfType("*entity.Bookmark")).Return(nil)

	on, err := usecase.NewManageBookmarksUseCase(repo).Toggle(ctx, "wiki", "https://kiwix.app/A", "A")
	require.NoError(t, err)
	assert.True(t, on)
}

func TestManageBookmarksUseCase_Toggle_RemovesWhenPresent(t *testing.T) {
	ctx := testContext()
	repo := repomocks.NewMockBookmarkRepository(t)

	repo.EXPECT().IsBookmarked(mock.Anything, entity.SourceID("wiki"), "https://kiwix.app/A").Return(true, nil)
	repo.EXPECT().Delete(mock.Anything, entity.SourceID("wiki"), "https://kiwix.app/A").Return(nil)

	on, err := usecase.NewManageBookmarksUseCase(repo).Toggle(ctx, "wiki", "https://kiwix.app/A", "A")
	require.NoError(t, err)
	assert.False(t, on)
}

func TestManageBookmarksUseCase_Toggle_RequiresPage(t *testing.T) {
	ctx := testContext()
	repo := repomocks.NewMockBookmarkRepository(t)

	_, err := usecase.NewManageBookmarksUseCase(repo).Toggle(ctx, "", "", "")
	require.Error(t, err)
}
