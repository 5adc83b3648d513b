package env

import (
	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file into the process environment.
// A missing file is not fatal so deployments can rely on real env vars.
func LoadEnv() {
	godotenv.Load()
}
