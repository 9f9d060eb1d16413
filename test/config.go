package test

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// SCENARIO_RACE_ENROLLERS is the number of students racing for the
	// last seats; raise it to stress the conflict retry path harder.
	RaceEnrollers int `envconfig:"SCENARIO_RACE_ENROLLERS" default:"8"`
	CourseSeats   int `envconfig:"SCENARIO_COURSE_SEATS" default:"3"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
