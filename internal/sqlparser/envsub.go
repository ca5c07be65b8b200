package sqlparser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mfridman/interpolate"
)

// envsubToken matches ${NAME}, ${NAME:-default} and ${NAME-default}, optionally preceded by a
// backslash. Bare $NAME is never matched, so dollar-quoted bodies stay intact.
var envsubToken = regexp.MustCompile(`\\?\$\{[A-Za-z_][A-Za-z0-9_]*(?::?-[^}]*)?\}`)

// substituteEnv expands every unescaped ${...} token in line using env. Missing variables expand
// to the empty string.
func substituteEnv(env interpolate.Env, line string) (string, error) {
	var firstErr error
	out := envsubToken.ReplaceAllStringFunc(line, func(token string) string {
		if strings.HasPrefix(token, `\`) {
			return token
		}
		val, err := interpolate.Interpolate(env, token)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to substitute %q: %w", token, err)
			}
			return token
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// processEnv is the lookup used when the caller does not inject one.
func processEnv() interpolate.Env {
	return interpolate.NewSliceEnv(os.Environ())
}
