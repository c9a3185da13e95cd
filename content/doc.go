// Package content models an imported camera-trap collection as a tree.
//
// A tree is made of exactly two node kinds sharing the Node interface:
//   - Directory: an ordered, exclusively owned list of children
//   - Leaf: one source image file with a lazily populated metadata field list
//
// Trees are produced by a Builder walking a filesystem (through afero, so tests
// run against memory filesystems), trimmed with Prune, and consumed by the
// metadata and export packages through Directory.Leaves.
//
// Parent pointers are non-owning back-references kept consistent by
// Directory.AddChild and Directory.RemoveChild. Only one goroutine may mutate a
// tree at a time; read-only passes over an unchanging tree may run concurrently.
//
// Example:
//
//	b := content.NewBuilder(content.WithLogger(logger))
//	root, err := b.BuildFromDirectory(ctx, "/media/SD_CARD/DCIM")
//	if err != nil {
//		return err
//	}
//	removed := content.Prune(root)
//	fmt.Println(root, removed)
package content
