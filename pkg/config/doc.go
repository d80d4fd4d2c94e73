// Package config loads relocator configuration. Embedded defaults are
// layered with the user's config file and RELOCATOR_ environment
// variables, then decoded and validated into a Config.
package config
