package instance

import "github.com/DanielHemmis/BggCollections/pkg/env"

// GetID returns the process instance identifier or a default value. Heroku
// style DYNO names are honored when no explicit id is set.
func GetID() string {
	if id := env.Get("BGGCOLLECTIONS_INSTANCE_ID", ""); id != "" {
		return id
	}
	return env.Get("DYNO", "local")
}
