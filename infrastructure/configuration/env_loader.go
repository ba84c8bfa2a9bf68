package configuration

import (
	"errors"
	"io/fs"
	"os"

	"publish-scheduler/infrastructure/logger"

	"github.com/sirupsen/logrus"
	"github.com/subosito/gotenv"
)

// EnvFiles lists the env files applied during init.
var EnvFiles []string

// LoadEnvFromFile exports the variables defined in each file that exists.
// Variables already present in the process environment win. It returns the
// files that were read.
func LoadEnvFromFile(paths ...string) []string {
	var loaded []string
	for _, p := range paths {
		vars, err := readEnvFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			logger.GetLogger().WithFields(logrus.Fields{"file": p, "error": err}).Warn("Skipping unreadable env file")
			continue
		}
		applied := 0
		for key, val := range vars {
			if _, exists := os.LookupEnv(key); exists {
				continue
			}
			if err := os.Setenv(key, val); err == nil {
				applied++
			}
		}
		loaded = append(loaded, p)
		logger.GetLogger().WithFields(logrus.Fields{"file": p, "defined": len(vars), "applied": applied}).Info("Loaded env file")
	}
	return loaded
}

// readEnvFile accepts KEY=VALUE, quoted values and `export KEY=VALUE` lines.
func readEnvFile(path string) (gotenv.Env, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return gotenv.StrictParse(f)
}
