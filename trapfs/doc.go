// Package trapfs serves a content tree as a read-only FUSE filesystem.
//
// The mounted view mirrors the tree exactly: directories list their children
// in tree order, and each leaf reads the bytes of its source file. A
// placeholder root shows every import side by side; when two children share a
// name, the first one wins. Leaf metadata is exposed as extended attributes
// named "user.trap.<field>", so populated fields can be inspected with
// getfattr without opening the image:
//
//	getfattr -d -m 'user.trap' /mnt/trap/DCIM/100CAM/IMG_0001.JPG
//
// Directories carry a single "user.trap.files" attribute with the number of
// leaves below them.
//
// Inodes are handed out lazily on first use and stay fixed for a node for the
// life of the mount. The root is always inode 1.
package trapfs
