// Package config defines the configuration for a badges node.
//
// Regardless of how a node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// options, a node relies on a data directory, defined by Config.DataDir, where
// it expects to find:
//
//  priv_key // a plain text file containing the raw private key (cf. badges keygen).
//  badges.toml // (optional) configuration overrides, also .json or .yaml.
//  badger_db/ // (optional) the database, when Store is set.
package config
