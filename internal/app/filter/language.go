package filter

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/domain/track"
)

// LanguageConfig represents the configuration for LanguageFilter.
type LanguageConfig struct {
	Languages []string `yaml:"languages" mapstructure:"languages" validate:"required,min=1,dive,len=2,alpha"`
}

// LanguageFilter keeps tracks in the configured languages.
// Tracks without a language tag (instrumentals, older clients) are accepted.
type LanguageFilter struct {
	languages map[string]bool
}

// NewLanguageFilter creates a new LanguageFilter for the given ISO-639-1 codes.
func NewLanguageFilter(languages ...string) *LanguageFilter {
	f := &LanguageFilter{languages: make(map[string]bool, len(languages))}
	for _, l := range languages {
		f.languages[strings.ToLower(l)] = true
	}
	return f
}

func (f *LanguageFilter) Name() string {
	return "language_filter"
}

func (f *LanguageFilter) Description() string {
	return "Checks if the track language is one of the configured languages"
}

func (f *LanguageFilter) ReturnCodes() []string {
	return []string{"language_restriction"}
}

func (f *LanguageFilter) ValidateConfig(settings map[string]any) error {
	var config LanguageConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	*f = *NewLanguageFilter(config.Languages...)
	zlog.Info().Msgf("language filter config: %+v", config)
	return nil
}

func (f *LanguageFilter) AppliesTo(origin track.SourceKind) bool {
	// Language restrictions apply to all tracks regardless of source
	return true
}

func (f *LanguageFilter) Check(ctx context.Context, t track.Track, queued []track.Track) Result {
	if len(f.languages) == 0 || t.Language == "" {
		return Accept()
	}
	if !f.languages[strings.ToLower(t.Language)] {
		return Reject("language_restriction")
	}
	return Accept()
}

func init() {
	Register("language_filter", func() Filter {
		return &LanguageFilter{}
	})
}
