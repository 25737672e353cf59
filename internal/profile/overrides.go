package profile

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/YashHaritash/btp-backend/internal/domain"
)

// overrideFile is the TOML layout of a profile overrides file:
//
//	[python]
//	run = "python3 -u {file}"
//	timeout = "5s"
//
//	[java]
//	image = "openjdk:11"
type overrideFile map[string]profileOverride

type profileOverride struct {
	Image   string `toml:"image"`
	Build   string `toml:"build"`
	Run     string `toml:"run"`
	Timeout string `toml:"timeout"`
}

// LoadOverrides applies a TOML overrides file to the registry.
// It must be called before the registry is shared.
func (r *Registry) LoadOverrides(path string) error {
	var file overrideFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fmt.Errorf("profile: decode overrides %s: %w", path, err)
	}
	return r.apply(file)
}

func (r *Registry) apply(file overrideFile) error {
	for tag, o := range file {
		p, ok := r.profiles[domain.Language(tag)]
		if !ok {
			return fmt.Errorf("profile: override for unknown language %q: %w", tag, domain.ErrInvalidLanguage)
		}

		next := *p
		if o.Image != "" {
			next.Image = o.Image
		}
		if o.Build != "" {
			if !next.Compiled {
				return fmt.Errorf("profile: %s is interpreted and has no build step", tag)
			}
			next.BuildCommand = o.Build
		}
		if o.Run != "" {
			next.RunCommand = o.Run
		}
		if o.Timeout != "" {
			d, err := time.ParseDuration(o.Timeout)
			if err != nil || d <= 0 {
				return fmt.Errorf("profile: %s timeout %q is not a positive duration", tag, o.Timeout)
			}
			next.Timeout = d
		}
		r.profiles[next.Language] = &next
	}
	return nil
}
