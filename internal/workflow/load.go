package workflow

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"realtyhub/backend/internal/models"
)

// Load returns the table selected by configuration: the permissive table when
// strict is false, otherwise the default table with any overrides from path.
func Load(strict bool, path string) (*Table, error) {
	if !strict {
		log.Warn().Msg("workflow: strict transitions disabled, any status is reachable")
		return Permissive(), nil
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads transition overrides from a YAML, JSON or TOML file:
//
//	transitions:
//	  lead:
//	    converted: [new]
//
// Kinds present in the file replace the default rules for that kind entirely.
func LoadFile(path string) (*Table, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}

	var raw map[string]map[string][]string
	if err := v.UnmarshalKey("transitions", &raw); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file %s: %w", path, err)
	}

	t := Default()
	for k, rules := range raw {
		kind := models.RecordKind(strings.ToLower(strings.TrimSpace(k)))
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownKind, k, path)
		}
		m := make(map[models.Status][]models.Status, len(rules))
		for f, tos := range rules {
			from := models.Status(strings.ToLower(strings.TrimSpace(f)))
			if !IsValidStatus(kind, from) {
				return nil, fmt.Errorf("%w: %q is not a %s status (%s)", ErrInvalidStatus, f, kind, path)
			}
			for _, name := range tos {
				to := models.Status(strings.ToLower(strings.TrimSpace(name)))
				if !IsValidStatus(kind, to) {
					return nil, fmt.Errorf("%w: %q is not a %s status (%s)", ErrInvalidStatus, name, kind, path)
				}
				m[from] = append(m[from], to)
			}
			if m[from] == nil {
				m[from] = []models.Status{}
			}
		}
		t.set(kind, m)
		log.Info().Str("kind", string(kind)).Str("file", path).Msg("workflow: transition rules overridden")
	}
	return t, nil
}
