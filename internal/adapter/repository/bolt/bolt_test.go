package bolt

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	bolt "go.etcd.io/bbolt"

	"github.com/armistcxy/url-shorten/internal/entity"
)

type URLRepositoryTestSuite struct {
	suite.Suite
	createdAt time.Time
	db        *bolt.DB
	repo      *URLRepository
}

func (suite *URLRepositoryTestSuite) SetupTest() {
	db, err := Open(filepath.Join(suite.T().TempDir(), "urls.db"), time.Second)
	suite.Require().NoError(err)
	suite.T().Cleanup(func() {
		db.Close()
	})

	suite.db = db
	suite.createdAt = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	suite.repo = NewURLRepository(db, time.Second)
	suite.repo.now = func() time.Time {
		return suite.createdAt
	}
}

func (suite *URLRepositoryTestSuite) TestInsert() {
	ctx := context.Background()

	url, err := suite.repo.Insert(ctx, "b1", "https://example.com/a")
	suite.Require().NoError(err)
	suite.Equal(&entity.URL{
		ID:          "b1",
		OriginalURL: "https://example.com/a",
		CreatedAt:   suite.createdAt,
	}, url)

	url, err = suite.repo.Insert(ctx, "b1", "https://example.com/a")
	suite.ErrorIs(err, entity.ErrAlreadyExists)
	suite.Nil(url)
}

func (suite *URLRepositoryTestSuite) TestPut() {
	ctx := context.Background()

	first, err := suite.repo.Put(ctx, "b1", "https://example.com/a")
	suite.Require().NoError(err)

	suite.repo.now = func() time.Time {
		return suite.createdAt.Add(time.Hour)
	}

	second, err := suite.repo.Put(ctx, "b1", "https://example.com/a")
	suite.Require().NoError(err)
	suite.Equal(first, second)

	url, err := suite.repo.Put(ctx, "b1", "https://example.com/b")
	suite.ErrorIs(err, entity.ErrAlreadyExists)
	suite.Nil(url)

	stored, err := suite.repo.Get(ctx, "b1")
	suite.Require().NoError(err)
	suite.Equal("https://example.com/a", stored.OriginalURL)
	suite.Equal(suite.createdAt, stored.CreatedAt)
}

func (suite *URLRepositoryTestSuite) TestGet() {
	ctx := context.Background()

	url, err := suite.repo.Get(ctx, "zz")
	suite.ErrorIs(err, entity.ErrURLNotFound)
	suite.Nil(url)

	_, err = suite.repo.Insert(ctx, "b1", "https://example.com/a")
	suite.Require().NoError(err)

	url, err = suite.repo.Get(ctx, "b1")
	suite.NoError(err)
	suite.Equal(&entity.URL{
		ID:          "b1",
		OriginalURL: "https://example.com/a",
		CreatedAt:   suite.createdAt,
	}, url)
}

func (suite *URLRepositoryTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := suite.repo.Insert(ctx, "b1", "https://example.com/a")
	suite.ErrorIs(err, entity.ErrStoreUnavailable)

	_, err = suite.repo.Get(ctx, "b1")
	suite.ErrorIs(err, entity.ErrStoreUnavailable)
}

func (suite *URLRepositoryTestSuite) TestWriterLockHeld() {
	suite.Run("caller deadline", func() {
		suite.assertBoundedWhileLocked(suite.repo, 20*time.Millisecond)
	})

	suite.Run("repository timeout", func() {
		suite.assertBoundedWhileLocked(NewURLRepository(suite.db, 20*time.Millisecond), 0)
	})
}

func (suite *URLRepositoryTestSuite) assertBoundedWhileLocked(repo *URLRepository, deadline time.Duration) {
	tx, err := suite.db.Begin(true)
	suite.Require().NoError(err)
	defer tx.Rollback()

	ctx := context.Background()
	if deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	start := time.Now()
	url, err := repo.Insert(ctx, "b1", "https://example.com/a")
	elapsed := time.Since(start)

	suite.ErrorIs(err, entity.ErrStoreUnavailable)
	suite.ErrorIs(err, context.DeadlineExceeded)
	suite.Nil(url)
	suite.Less(elapsed, 250*time.Millisecond)

	suite.Require().NoError(tx.Rollback())

	// The abandoned write must not land once the lock is released.
	url, err = suite.repo.Insert(context.Background(), "b1", "https://example.com/b")
	suite.Require().NoError(err)
	suite.Equal("https://example.com/b", url.OriginalURL)

	suite.Require().NoError(suite.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(urlsBucket).Delete([]byte("b1"))
	}))
}

func (suite *URLRepositoryTestSuite) TestConcurrentInsertSameID() {
	const workers = 16

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := suite.repo.Insert(context.Background(), "b1", fmt.Sprintf("https://example.com/%d", i))
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	suite.Equal(1, success)
}

func TestURLRepository(t *testing.T) {
	suite.Run(t, new(URLRepositoryTestSuite))
}

func TestDecodeShortValue(t *testing.T) {
	url, err := decode("b1", []byte{1, 2})

	assert.ErrorIs(t, err, errCorruptValue)
	assert.Nil(t, url)
}
