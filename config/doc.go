// Package config defines the settings document shared by the
// resilience stack: retry parameters, per-kind circuit thresholds,
// health probing, batch execution, and analytics retention. Settings
// load from a YAML file with Load, and any field left zero is
// backfilled from Default.
package config
