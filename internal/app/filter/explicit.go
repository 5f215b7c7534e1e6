package filter

import (
	"context"

	"github.com/osa030/nostrbeat/internal/domain/track"
)

// ExplicitFilter rejects tracks flagged as explicit.
type ExplicitFilter struct{}

func (f *ExplicitFilter) Name() string {
	return "explicit_filter"
}

func (f *ExplicitFilter) Description() string {
	return "Skips tracks marked explicit or carrying a content warning"
}

func (f *ExplicitFilter) ReturnCodes() []string {
	return []string{"explicit_content"}
}

func (f *ExplicitFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *ExplicitFilter) AppliesTo(origin track.SourceKind) bool {
	return true
}

func (f *ExplicitFilter) Check(ctx context.Context, t track.Track, queued []track.Track) Result {
	if t.Explicit {
		return Reject("explicit_content")
	}
	return Accept()
}

func init() {
	Register("explicit_filter", func() Filter {
		return &ExplicitFilter{}
	})
}
