// Package config loads process configuration from the environment with viper
// and validates it with validator struct tags.
//
// DATABASE_URL is the only required variable. The rest default to the values
// in defaults; durations accept Go duration strings such as "10s".
package config
