// Package logging is the leveled logger used throughout media-cloud.
//
// Levels are DEBUG, INFO, WARN and ERROR, plus Fatal which exits. The level
// is read once from DEBUG (any truthy value forces debug) and then LOG_LEVEL.
//
// CronLogger bridges the package to the scheduler's structured logger.
package logging
