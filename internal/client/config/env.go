package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/foodshare/internal/flagx"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded when present and no -e/-env flag is given.
const DefaultEnvFile = ".env"

// parseEnv overlays Config with FOODSHARE_* environment variables. A dotenv
// file is loaded first; variables already set in the environment win over
// the file. Unset variables leave fields untouched.
//
// Panics on an unreadable dotenv file named by flag or on malformed values.
func parseEnv(cfg *Config) {
	envFile := flagx.ConfigFileFlags(os.Args[1:]).Env
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
}
