package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"

	"github.com/pnp-roster/roster/avatar"
)

// avatarConf configures the avatar lookup and its in-process cache
type avatarConf struct {
	// Disabled turns avatar lookups off; the roster is shown without images
	Disabled           bool                    `yaml:"disabled"`
	TTL                duration.DurationOption `yaml:"ttl"`
	SweepInterval      duration.DurationOption `yaml:"sweep_interval"`
	Size               string                  `yaml:"size"`
	Timeout            duration.DurationOption `yaml:"timeout"`
	UsersEndpoint      string                  `yaml:"users_endpoint"`
	ThumbnailsEndpoint string                  `yaml:"thumbnails_endpoint"`
}

var defaultAvatarConf = avatarConf{
	TTL:                duration.DurationOption(avatar.DefaultTTL),
	SweepInterval:      duration.DurationOption(avatar.DefaultSweepInterval),
	Size:               avatar.DefaultSize,
	Timeout:            duration.DurationOption(avatar.DefaultTimeout),
	UsersEndpoint:      avatar.DefaultUsersEndpoint,
	ThumbnailsEndpoint: avatar.DefaultThumbnailsEndpoint,
}

func (c *avatarConf) validate() error {
	if c.TTL.Duration() <= 0 {
		return errors.New("ttl must be positive")
	}
	if c.SweepInterval.Duration() < time.Second {
		return errors.New("sweep_interval must be at least one second")
	}
	if c.Timeout.Duration() <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Size == "" {
		c.Size = avatar.DefaultSize
	}
	return nil
}

// RobloxConfig returns the avatar.RobloxConfig of this section
func (c avatarConf) RobloxConfig() avatar.RobloxConfig {
	return avatar.RobloxConfig{
		UsersEndpoint:      c.UsersEndpoint,
		ThumbnailsEndpoint: c.ThumbnailsEndpoint,
		Size:               c.Size,
		Timeout:            c.Timeout.Duration(),
	}
}
