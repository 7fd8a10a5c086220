package secret

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// ExpandEnvStrict expands environment variables in s.
//
//   - ${VAR} with VAR unset is an error wrapping ErrMissingEnv that names
//     every missing variable.
//   - $VAR expands to the empty string when VAR is unset.
//   - $$ is a literal $.
func ExpandEnvStrict(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var (
		out     strings.Builder
		missing []string
	)
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i+1 == len(s) {
			out.WriteByte(s[i])
			continue
		}

		switch next := s[i+1]; {
		case next == '$':
			out.WriteByte('$')
			i++
		case next == '{':
			end := strings.IndexByte(s[i+2:], '}')
			name := ""
			if end >= 0 {
				name = s[i+2 : i+2+end]
			}
			if !isEnvName(name) {
				out.WriteByte('$')
				continue
			}
			v, ok := os.LookupEnv(name)
			if !ok && !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			out.WriteString(v)
			i += 2 + end
		case isEnvStart(next):
			j := i + 2
			for j < len(s) && isEnvChar(s[j]) {
				j++
			}
			out.WriteString(os.Getenv(s[i+1 : j]))
			i = j - 1
		default:
			out.WriteByte('$')
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return out.String(), nil
}

func isEnvStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isEnvChar(c byte) bool {
	return isEnvStart(c) || ('0' <= c && c <= '9')
}

func isEnvName(name string) bool {
	if name == "" || !isEnvStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isEnvChar(name[i]) {
			return false
		}
	}
	return true
}
