package config

import (
	"errors"
	"io/fs"
)

// viper reports a missing explicit config file as a plain fs error rather than
// ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
