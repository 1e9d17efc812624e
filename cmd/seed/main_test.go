package main

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstream/internal/catalog"
)

func TestSeed_InsertsMissingBooks(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := catalog.NewMockRepository(ctrl)

	repo.EXPECT().List(gomock.Any(), catalog.SearchQuery{Q: "A Carteira"}).Return([]catalog.Book{}, nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b *catalog.Book) error {
		assert.Equal(t, "Machado de Assis", b.Author)
		assert.Equal(t, 1860, *b.Year)
		return nil
	})

	n, err := seed(context.Background(), repo, seedBooks)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSeed_SkipsExisting(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := catalog.NewMockRepository(ctrl)

	repo.EXPECT().List(gomock.Any(), gomock.Any()).
		Return([]catalog.Book{{Title: "a carteira", Author: "MACHADO DE ASSIS"}}, nil)

	n, err := seed(context.Background(), repo, seedBooks)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeed_StopsOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := catalog.NewMockRepository(ctrl)
	boom := errors.New("db down")

	repo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, boom)

	_, err := seed(context.Background(), repo, seedBooks)
	assert.ErrorIs(t, err, boom)
}
