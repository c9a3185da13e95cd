// Package main provides the trapstash command-line interface.
//
// trapstash stages camera trap imports for upload. It walks one or more
// memory cards or field folders, keeps only the folders that lead to images,
// reads each image's EXIF metadata and packs the images into tar archives of
// a bounded, evenly balanced size, with a JSON manifest describing every
// archive.
//
// The binary supports multiple subcommands:
//   - tree: Show the pruned import tree
//   - export: Pack an import into chunk archives
//   - validate: Check archives against their manifest
//   - mount: Browse an import through a read-only FUSE filesystem
//   - count: Count importable images
//   - seed: Generate a fake camera trap import
package main
