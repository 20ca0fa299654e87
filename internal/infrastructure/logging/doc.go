// Package logging builds the bridge's log/slog logger.
//
// Entries are JSON by default and always carry service and version.
// Subsystems derive a tagged child with Component:
//
//	log := logging.New(cfg.Logging, version)
//	log.Component("delivery").Warn("alarm rejected", "status", 500)
//
// Credentials and image bytes are never logged. Log that an image was
// attached, not its contents.
package logging
