package loadkit

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-faker/faker/v4"
)

const (
	DefaultZipfS = 1.07
	DefaultZipfV = 1.0
)

var ErrInvalidDistribution = errors.New("zipf distribution requires s > 1 and v >= 1")

type GenerateOptions struct {
	Keys  int
	Reads int
	ZipfS float64
	ZipfV float64
	// Seed makes the read scenario reproducible. Zero seeds from the clock.
	Seed int64
	// URL produces record values, faker.URL by default.
	URL func() string
}

// Generate returns opts.Keys records named "key_<i>" and opts.Reads lookups
// over them. Low indexes are read far more often than high ones, which is
// what a cache in front of the store is meant to absorb.
func Generate(opts GenerateOptions) ([]Entry, []ReadCase, error) {
	const op = "loadkit.Generate"

	if opts.Keys < 1 {
		return nil, nil, fmt.Errorf("%s: at least one key is required", op)
	}
	if opts.Reads < 0 {
		return nil, nil, fmt.Errorf("%s: negative read count", op)
	}
	if opts.URL == nil {
		opts.URL = func() string { return faker.URL() }
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	entries := make([]Entry, opts.Keys)
	for i := range entries {
		entries[i] = Entry{
			Key:   fmt.Sprintf("key%s%d", DefaultSeparator, i),
			Value: opts.URL(),
		}
	}

	r := rand.New(rand.NewSource(opts.Seed))
	zipf := rand.NewZipf(r, opts.ZipfS, opts.ZipfV, uint64(opts.Keys-1))
	if zipf == nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidDistribution)
	}

	reads := make([]ReadCase, opts.Reads)
	for i := range reads {
		reads[i] = ReadCase{Key: entries[zipf.Uint64()].Key}
	}

	return entries, reads, nil
}
