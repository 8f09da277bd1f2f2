package api

import (
	"context"

	"github.com/mantonx/streamin/internal/database"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/library"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/pipeline"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/session"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/system"
)

// MediaLister lists the probeable media in a directory.
type MediaLister interface {
	List(ctx context.Context, dir string) ([]library.MediaInfo, error)
}

// SessionService starts and tracks conversion sessions.
type SessionService interface {
	CreateDASH(ctx context.Context, mediaID string) (*session.Session, error)
	Get(id string) (*session.Session, error)
	List() map[string]pipeline.Info
	Cancel(id string) (*session.Session, error)
	History(ctx context.Context, limit int) ([]database.ConversionJob, error)
}

// ResourceSampler reports host and process resource use.
type ResourceSampler interface {
	GetSystemInfo(ctx context.Context) (*system.SystemInfo, error)
	ProcessStats(ctx context.Context, pid int) (*system.ProcessStats, error)
}
