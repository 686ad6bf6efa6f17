// Package config loads and validates the service configuration.
//
// Configuration is JSON, assembled from three sources in order of
// increasing precedence: package defaults, file layers, and SEISGATE_*
// environment variables. File layers are deep-merged key by key, so a
// deployment layer only needs the fields it changes:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.json")
//	loader.AddLayer("configs/production.json")
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
//
// Each section of Config is the owning package's config type; validation
// delegates to those packages and applies their defaults in place.
// Duration fields accept Go duration strings ("30s", "5m") and a day
// suffix ("14d") in addition to nanosecond integers.
//
// Environment overrides cover connection-level settings only: the
// gateway bind address, the routing service URL, cache address and
// credentials, the metrics port, and the spill directory. Tuning knobs
// are file-only to keep deployed behavior reviewable.
package config
