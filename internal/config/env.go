package config

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/docstage/internal/logfields"
)

// EnvFiles are loaded, in order, before CLI parsing. Existing variables are never overridden.
var EnvFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads whichever env files exist and returns their names.
func LoadEnvFiles(files ...string) []string {
	if len(files) == 0 {
		files = EnvFiles
	}
	var loaded []string
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("Cannot load env file", logfields.File(f), logfields.Error(err))
			}
			continue
		}
		loaded = append(loaded, f)
	}
	return loaded
}
