// Package config provides configuration structures and utilities for shopscan.
// It defines the main configuration options for crawling storefronts,
// per-site overrides loaded from shopscan.yml, and report generation
// preferences.
package config
