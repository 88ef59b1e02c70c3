package catalog

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hibiki/internal/infra/config"
	"github.com/osa030/hibiki/internal/infra/dab"
	"github.com/osa030/hibiki/internal/infra/spotify"
)

// DabSettings configures the dab provider.
type DabSettings struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url" default:"https://dab.yeet.su/api" validate:"required,url"`
	TimeoutMs int    `yaml:"timeout_ms" mapstructure:"timeout_ms" default:"10000" validate:"gte=100"`
	Quality   int    `yaml:"quality" mapstructure:"quality" default:"27" validate:"gte=1"`
}

// SpotifySettings configures the spotify provider.
type SpotifySettings struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" mapstructure:"refresh_token" validate:"required"`
	Market       string `yaml:"market" mapstructure:"market" default:"JP" validate:"len=2"`
}

// NewFromConfig creates the track source selected by the catalog configuration.
func NewFromConfig(ctx context.Context, cfg config.CatalogConfig) (*Named, error) {
	zlog.Debug().Msgf("creating catalog source: provider=%s", cfg.Provider)

	var (
		src Source
		err error
	)
	switch cfg.Provider {
	case "dab", "":
		src, err = newDab(cfg.Settings)
	case "spotify":
		src, err = newSpotify(ctx, cfg.Settings)
	default:
		return nil, errors.Newf("unsupported catalog provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create catalog source (provider %s)", cfg.Provider)
	}

	provider := cfg.Provider
	if provider == "" {
		provider = "dab"
	}
	zlog.Info().Msgf("registered catalog source: provider=%s", provider)
	return &Named{Source: src, Provider: provider}, nil
}

func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.WeakDecode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func newDab(settings map[string]any) (Source, error) {
	var s DabSettings
	if err := decodeSettings(settings, &s); err != nil {
		return nil, err
	}
	return dab.New(dab.Config{
		BaseURL: s.BaseURL,
		Timeout: time.Duration(s.TimeoutMs) * time.Millisecond,
		Quality: s.Quality,
	})
}

func newSpotify(ctx context.Context, settings map[string]any) (Source, error) {
	var s SpotifySettings
	if err := decodeSettings(settings, &s); err != nil {
		return nil, err
	}
	client, err := spotify.New(ctx, spotify.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RefreshToken: s.RefreshToken,
		Market:       s.Market,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
