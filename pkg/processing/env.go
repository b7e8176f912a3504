package processing

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
)

// Environment is the resolved environment handed to every step of a job.
type Environment map[string]string

// Resolve overlays the job environment on the global defaults. Job keys win;
// global keys the job does not set pass through. Neither input is modified.
func Resolve(global, job map[string]string) (Environment, error) {
	return ResolveLayers(global, job)
}

// ResolveLayers merges environment layers left to right, later layers
// overriding earlier ones. The result is a fresh map.
func ResolveLayers(layers ...map[string]string) (Environment, error) {
	size := 0
	for _, l := range layers {
		size += len(l)
	}

	env := make(Environment, size)
	for _, l := range layers {
		if err := checkLayer(l); err != nil {
			return nil, err
		}
		maps.Copy(env, l)
	}
	return env, nil
}

func checkLayer(layer map[string]string) error {
	for k, v := range layer {
		switch {
		case k == "":
			return &ConfigError{Key: k, Msg: "empty variable name"}
		case strings.ContainsAny(k, "=\x00"):
			return &ConfigError{Key: k, Msg: "variable name contains '=' or NUL"}
		case strings.ContainsRune(v, 0):
			return &ConfigError{Key: k, Msg: "value contains NUL"}
		}
	}
	return nil
}

// Pairs returns the environment as sorted KEY=VALUE strings.
func (e Environment) Pairs() []string {
	keys := slices.Sorted(maps.Keys(e))
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+e[k])
	}
	return pairs
}

// ProcessEnvironment returns the environment of the current process as a map.
func ProcessEnvironment() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// LoadEnvFiles reads dotenv files into one layer, later files overriding
// earlier ones. The process environment is not touched.
func LoadEnvFiles(filenames ...string) (map[string]string, error) {
	layer := make(map[string]string)
	for _, f := range filenames {
		vars, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("reading env file %s: %w", f, err)
		}
		maps.Copy(layer, vars)
	}
	return layer, nil
}
