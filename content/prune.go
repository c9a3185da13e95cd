package content

// Prune removes, in place, every directory below d whose subtree holds no
// leaves. Children are handled before their parent, so a directory emptied by
// the removal of its own children is removed too. d itself is never removed.
// It returns the number of directories detached from their parents; a second
// call on the same tree returns 0.
func Prune(d *Directory) int {
	if d == nil {
		return 0
	}
	removed := 0
	kept := d.children[:0:0]
	for _, c := range d.children {
		sub, ok := c.(*Directory)
		if !ok {
			kept = append(kept, c)
			continue
		}
		removed += Prune(sub)
		if len(sub.children) == 0 {
			sub.setParent(nil)
			removed++
			continue
		}
		kept = append(kept, c)
	}
	d.children = kept
	return removed
}
