package instance

import "os"

// GetID identifies the running replica for log correlation. DYNO is set on
// Heroku-style platforms; HOSTNAME covers containers.
func GetID() string {
	for _, key := range []string{"DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
