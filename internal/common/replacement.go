// -----------------------------------------------------------------------
// Key Reference Resolution - {key-name} substitution in config values
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
)

// keyRefPattern matches {key-name} tokens. Key names carry alphanumerics,
// hyphens, and underscores, matching the normalized KV store keys.
var keyRefPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// ReplaceInStruct walks a config struct and substitutes {key-name} tokens
// in string and []string fields with values from the key/value store. The
// struct is mutated in place and the number of applied substitutions is
// returned. Unresolved tokens stay intact and are logged once per key so a
// missing API key is visible without failing startup.
//
// Resolved values are never logged: the tokens reference secrets.
func ReplaceInStruct(v interface{}, kvMap map[string]string, logger arbor.ILogger) (int, error) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return 0, fmt.Errorf("key replacement requires a struct pointer, got %T", v)
	}

	r := &keyResolver{
		kvMap:   kvMap,
		logger:  logger,
		missing: make(map[string]struct{}),
	}
	r.walkStruct(val.Elem(), "")
	return r.applied, nil
}

// keyResolver carries the traversal state: the lookup map, a dedupe set for
// missing-key warnings, and the substitution tally.
type keyResolver struct {
	kvMap   map[string]string
	logger  arbor.ILogger
	missing map[string]struct{}
	applied int
}

func (r *keyResolver) walkStruct(val reflect.Value, path string) {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}

		name := typ.Field(i).Name
		if path != "" {
			name = path + "." + name
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(r.resolve(field.String(), name))

		case reflect.Struct:
			r.walkStruct(field, name)

		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				r.walkStruct(field.Elem(), name)
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				for j := 0; j < field.Len(); j++ {
					elem := field.Index(j)
					elem.SetString(r.resolve(elem.String(), fmt.Sprintf("%s[%d]", name, j)))
				}
			}
		}
	}
}

// resolve substitutes every {key-name} token in input. Fields without a
// brace are returned untouched without running the pattern.
func (r *keyResolver) resolve(input, fieldPath string) string {
	if input == "" || !strings.Contains(input, "{") {
		return input
	}

	out := keyRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := r.kvMap[key]; ok {
			r.applied++
			return value
		}

		if _, seen := r.missing[key]; !seen {
			r.missing[key] = struct{}{}
			r.logger.Warn().
				Str("key", key).
				Str("field", fieldPath).
				Msg("Unresolved key reference in config")
		}
		return match
	})

	if out != input {
		r.logger.Debug().Str("field", fieldPath).Msg("Replaced key reference in config field")
	}
	return out
}
