package service

import (
	"github.com/okian/sentimoji/internal/adapters/repository"
	"github.com/okian/sentimoji/internal/domain/emoji"
	"github.com/okian/sentimoji/internal/domain/sentiment"
	"github.com/okian/sentimoji/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProvider sets the text sentiment provider.
func WithProvider(p sentiment.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithCache sets the verdict cache placed in front of the provider.
func WithCache(c sentiment.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithCatalogSource sets where emoji metadata is read from at start.
func WithCatalogSource(src emoji.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithExtractor sets how emoji are found in text.
func WithExtractor(x emoji.Extractor) Option {
	return func(s *Service) {
		if x != nil {
			s.extractor = x
		}
	}
}

// WithBoard sets the emoji usage store.
func WithBoard(b repository.Store) Option {
	return func(s *Service) {
		if b != nil {
			s.board = b
		}
	}
}

// WithWorkerCount sets the number of batch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the batch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxBatchSize caps the number of comments per batch.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithCatalog uses a prebuilt catalog instead of building one from the source.
func WithCatalog(c *emoji.Catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}
