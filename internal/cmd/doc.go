// Package cmd provides the command-line interface implementation for trapstash.
//
// It uses the Cobra library for command structure and Fang for styling. The
// root command loads configuration through the config package before any
// subcommand runs, binding flags, TRAPSTASH_* environment variables and the
// optional trapstash.yaml file into one Config, and builds the logger from it.
//
// The package is organized into the following commands:
//   - tree: build and prune an import tree and print it
//   - export: populate metadata and pack the tree into chunk archives
//   - validate: re-check archives against a manifest
//   - mount: serve the import tree through trapfs
//   - count: count importable images
//   - seed: write a fake camera trap card
//
// Long-running passes run as jobs and draw a progress bar while they work;
// an interrupt cancels them.
package cmd
