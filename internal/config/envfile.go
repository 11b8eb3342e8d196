package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/teemow/gdrive-mcp/internal/errs"
)

// DefaultEnvFile is read at startup when ENV_FILE does not name another file.
const DefaultEnvFile = ".env"

// EnvFilePath returns the env file to load: ENV_FILE or DefaultEnvFile.
func EnvFilePath() string {
	if p := os.Getenv("ENV_FILE"); p != "" {
		return p
	}
	return DefaultEnvFile
}

// LoadEnvFile copies KEY=value pairs from path into the process environment.
// Variables already set in the environment win. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errs.Configuration("ENV_FILE", "cannot parse "+path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return errs.Configuration(name, "cannot export value from "+path, err)
		}
	}
	return nil
}
