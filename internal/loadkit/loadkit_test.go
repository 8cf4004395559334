package loadkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armistcxy/url-shorten/internal/entity"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		sep     string
		want    string
		wantErr bool
	}{
		{name: "generated key", key: "key_42", sep: "_", want: "42"},
		{name: "separator in id", key: "key_a_b", sep: "_", want: "a_b"},
		{name: "custom separator", key: "k:xyz", sep: ":", want: "xyz"},
		{name: "no separator", key: "key42", sep: "_", wantErr: true},
		{name: "empty id", key: "key_", sep: "_", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.key, tt.sep)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedKey)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestGenerate(t *testing.T) {
	var n int
	opts := GenerateOptions{
		Keys:  50,
		Reads: 1000,
		ZipfS: DefaultZipfS,
		ZipfV: DefaultZipfV,
		Seed:  7,
		URL: func() string {
			n++
			return fmt.Sprintf("https://example.com/%d", n)
		},
	}

	entries, reads, err := Generate(opts)
	require.NoError(t, err)
	require.Len(t, entries, 50)
	require.Len(t, reads, 1000)

	assert.Equal(t, Entry{Key: "key_0", Value: "https://example.com/1"}, entries[0])

	keys := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		keys[e.Key] = struct{}{}
	}

	hot := 0
	for _, rc := range reads {
		_, ok := keys[rc.Key]
		assert.True(t, ok, "read of unknown key %q", rc.Key)
		if rc.Key == "key_0" {
			hot++
		}
	}
	// Rank 0 dominates a Zipf distribution with s close to 1.
	assert.Greater(t, hot, len(reads)/10)

	n = 0
	_, again, err := Generate(opts)
	require.NoError(t, err)
	assert.Equal(t, reads, again)
}

func TestGenerate_InvalidOptions(t *testing.T) {
	_, _, err := Generate(GenerateOptions{Keys: 0, Reads: 1, ZipfS: DefaultZipfS, ZipfV: DefaultZipfV})
	assert.Error(t, err)

	_, _, err = Generate(GenerateOptions{Keys: 10, Reads: 1, ZipfS: 1, ZipfV: DefaultZipfV, URL: func() string { return "" }})
	assert.ErrorIs(t, err, ErrInvalidDistribution)
}

func TestGenerate_FakeURLs(t *testing.T) {
	entries, _, err := Generate(GenerateOptions{Keys: 5, ZipfS: DefaultZipfS, ZipfV: DefaultZipfV})
	require.NoError(t, err)

	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Value, "http"), "unexpected fake url %q", e.Value)
	}
}

type fakeUpserter struct {
	batches [][]entity.Record
	err     error
}

func (f *fakeUpserter) Upsert(_ context.Context, records []entity.Record) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.batches = append(f.batches, slices.Clone(records))
	return int64(len(records)), nil
}

func TestUpsert(t *testing.T) {
	entries := []Entry{
		{Key: "key_1", Value: "https://example.com/1"},
		{Key: "key_2", Value: "https://example.com/2"},
		{Key: "key_3", Value: "https://example.com/3"},
	}

	t.Run("batches", func(t *testing.T) {
		store := &fakeUpserter{}

		report, err := Upsert(context.Background(), store, entries, "_", 2)

		require.NoError(t, err)
		assert.Equal(t, Report{Written: 3}, report)
		assert.Equal(t, [][]entity.Record{
			{{ID: "1", OriginalURL: "https://example.com/1"}, {ID: "2", OriginalURL: "https://example.com/2"}},
			{{ID: "3", OriginalURL: "https://example.com/3"}},
		}, store.batches)
	})

	t.Run("batch size is clamped", func(t *testing.T) {
		store := &fakeUpserter{}
		many := make([]Entry, MaxBatchSize+1)
		for i := range many {
			many[i] = Entry{Key: fmt.Sprintf("key_%d", i), Value: "https://example.com"}
		}

		report, err := Upsert(context.Background(), store, many, "_", 40000)

		require.NoError(t, err)
		assert.Equal(t, int64(MaxBatchSize+1), report.Written)
		require.Len(t, store.batches, 2)
		assert.Len(t, store.batches[0], MaxBatchSize)
		assert.Len(t, store.batches[1], 1)
	})

	t.Run("malformed key", func(t *testing.T) {
		store := &fakeUpserter{}

		_, err := Upsert(context.Background(), store, []Entry{{Key: "bad", Value: "https://example.com"}}, "_", 2)

		assert.ErrorIs(t, err, ErrMalformedKey)
		assert.Empty(t, store.batches)
	})

	t.Run("store error", func(t *testing.T) {
		store := &fakeUpserter{err: entity.ErrStoreUnavailable}

		_, err := Upsert(context.Background(), store, entries, "_", 10)

		assert.ErrorIs(t, err, entity.ErrStoreUnavailable)
	})
}

type fakeRegistrar map[string]string

func (f fakeRegistrar) Register(_ context.Context, id, originalURL string) (*entity.URL, error) {
	if existing, ok := f[id]; ok && existing != originalURL {
		return nil, entity.ErrAlreadyExists
	}
	f[id] = originalURL
	return &entity.URL{ID: id, OriginalURL: originalURL}, nil
}

func TestPut(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := fakeRegistrar{"2": "https://example.com/other"}
	entries := []Entry{
		{Key: "key_1", Value: "https://example.com/1"},
		{Key: "key_2", Value: "https://example.com/2"},
	}

	report, err := Put(context.Background(), store, entries, "_", logger)
	require.NoError(t, err)
	assert.Equal(t, Report{Written: 1, Conflicts: 1}, report)

	report, err = Put(context.Background(), store, entries, "_", logger)
	require.NoError(t, err)
	assert.Equal(t, Report{Written: 1, Conflicts: 1}, report)

	assert.Equal(t, fakeRegistrar{
		"1": "https://example.com/1",
		"2": "https://example.com/other",
	}, store)
}

type failingRegistrar struct{}

func (failingRegistrar) Register(context.Context, string, string) (*entity.URL, error) {
	return nil, errors.New("unknown error")
}

func TestPut_Error(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	report, err := Put(context.Background(), failingRegistrar{}, []Entry{{Key: "key_1", Value: "https://example.com/1"}}, "_", logger)

	assert.Error(t, err)
	assert.Zero(t, report.Written)
}

func TestWriteTargets(t *testing.T) {
	var buf bytes.Buffer

	err := WriteTargets(&buf, []ReadCase{{Key: "key_1"}, {Key: "key_42"}}, "localhost:8088", "_")

	require.NoError(t, err)
	assert.Equal(t,
		"GET http://localhost:8088/short/1\nGET http://localhost:8088/short/42\n",
		buf.String(),
	)
}

func TestJSONFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	want := []Entry{{Key: "key_0", Value: "https://example.com"}}

	require.NoError(t, WriteJSON(path, want))

	got, err := ReadJSON[Entry](path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ReadJSON[Entry](filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
