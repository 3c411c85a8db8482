// Package config handles application configuration loading and management.
//
// Configuration is stored in ~/.highlander/config.json and holds the default
// simulation parameters (population size, health, damage, fight mode), the
// timing knobs used by the workers, and settings for the front-ends.
package config
