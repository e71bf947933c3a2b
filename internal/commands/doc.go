// Package commands provides the command-line interface for the rotor tool.
//
// It implements commands for:
//   - encryption
//   - decryption
//   - printing the version
//
// The package handles command-line parsing, configuration validation,
// and environment variable binding through cobra and viper.
package commands
