package portfolio

import (
	"context"
	"time"
)

// NoopCache never holds anything
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NoopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopCache) Del(context.Context, ...string) error { return nil }

// NoopMetrics discards every counter
type NoopMetrics struct{}

func (NoopMetrics) BlobStored(BackendKind) {}

func (NoopMetrics) UploadRejected(string, string) {}

func (NoopMetrics) OrphanDeleted(BackendKind, string) {}
