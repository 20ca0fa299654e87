// Package config loads the bridge configuration.
//
// Sources are applied in order: built-in defaults, the YAML file, a .env
// file beside it, then ALARMBRIDGE_* environment variables. The defaults
// describe a single camera talking to a local broker, so a deployment
// usually overrides only the alarm endpoint and the camera identity.
//
//	cfg, err := config.LoadOptional(path)
//
// Keep the broker password and static credentials in the environment,
// not in the YAML file.
package config
