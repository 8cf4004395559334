package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/armistcxy/url-shorten/internal/entity"
	"github.com/armistcxy/url-shorten/mocks/cache"
)

type RepositoryTestSuite struct {
	suite.Suite
	errUnknown error
	url        *entity.URL
	storeMock  *cache.MockStore
	cacheMock  *cache.MockCache
	repo       *Repository
}

func (suite *RepositoryTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.url = &entity.URL{
		ID:          "b1",
		OriginalURL: "https://example.com/a",
		CreatedAt:   time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (suite *RepositoryTestSuite) SetupSubTest() {
	suite.storeMock = cache.NewMockStore(suite.T())
	suite.cacheMock = cache.NewMockCache(suite.T())
	suite.repo = NewRepository(suite.storeMock, suite.cacheMock, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (suite *RepositoryTestSuite) TestGet() {
	ctx := context.Background()

	suite.Run("hit", func() {
		suite.cacheMock.On("Get", ctx, "b1").Once().Return(suite.url, nil)

		url, err := suite.repo.Get(ctx, "b1")

		suite.NoError(err)
		suite.Equal(suite.url, url)
	})

	suite.Run("miss", func() {
		suite.cacheMock.On("Get", ctx, "b1").Once().Return(nil, ErrMiss)
		suite.storeMock.On("Get", ctx, "b1").Once().Return(suite.url, nil)
		suite.cacheMock.On("Set", ctx, suite.url).Once().Return(nil)

		url, err := suite.repo.Get(ctx, "b1")

		suite.NoError(err)
		suite.Equal(suite.url, url)
	})

	suite.Run("not found is not cached", func() {
		suite.cacheMock.On("Get", ctx, "zz").Once().Return(nil, ErrMiss)
		suite.storeMock.On("Get", ctx, "zz").Once().Return(nil, entity.ErrURLNotFound)

		url, err := suite.repo.Get(ctx, "zz")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("cache down", func() {
		suite.cacheMock.On("Get", ctx, "b1").Once().Return(nil, suite.errUnknown)
		suite.storeMock.On("Get", ctx, "b1").Once().Return(suite.url, nil)
		suite.cacheMock.On("Set", ctx, suite.url).Once().Return(suite.errUnknown)

		url, err := suite.repo.Get(ctx, "b1")

		suite.NoError(err)
		suite.Equal(suite.url, url)
	})
}

func (suite *RepositoryTestSuite) TestInsert() {
	ctx := context.Background()

	suite.Run("store error", func() {
		suite.storeMock.On("Insert", ctx, "b1", "https://example.com/a").Once().Return(nil, entity.ErrAlreadyExists)

		url, err := suite.repo.Insert(ctx, "b1", "https://example.com/a")

		suite.ErrorIs(err, entity.ErrAlreadyExists)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.storeMock.On("Insert", ctx, "b1", "https://example.com/a").Once().Return(suite.url, nil)
		suite.cacheMock.On("Set", ctx, suite.url).Once().Return(nil)

		url, err := suite.repo.Insert(ctx, "b1", "https://example.com/a")

		suite.NoError(err)
		suite.Equal(suite.url, url)
	})
}

func (suite *RepositoryTestSuite) TestPut() {
	ctx := context.Background()

	suite.Run("success", func() {
		suite.storeMock.On("Put", ctx, "b1", "https://example.com/a").Once().Return(suite.url, nil)
		suite.cacheMock.On("Set", ctx, suite.url).Once().Return(suite.errUnknown)

		url, err := suite.repo.Put(ctx, "b1", "https://example.com/a")

		suite.NoError(err)
		suite.Equal(suite.url, url)
	})
}

func TestRepository(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestMemoryCache(t *testing.T) {
	c, err := NewMemoryCache(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create memory cache: %v", err)
	}
	t.Cleanup(c.Close)

	ctx := context.Background()
	want := &entity.URL{
		ID:          "b1",
		OriginalURL: "https://example.com/a",
		CreatedAt:   time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC),
	}

	if _, err := c.Get(ctx, "b1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get() on empty cache: got %v, want ErrMiss", err)
	}

	if err := c.Set(ctx, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.Wait()

	got, err := c.Get(ctx, "b1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got != *want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	// The cached value is a copy.
	got.OriginalURL = "https://example.com/b"
	again, _ := c.Get(ctx, "b1")
	if again.OriginalURL != want.OriginalURL {
		t.Errorf("cached value was mutated through a returned pointer")
	}
}
