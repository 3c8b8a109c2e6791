package loki

// isLGRamdiskAddress reports whether a ramdisk load address belongs to
// the LG device family. LG boot layouts sit in the upper half of the
// address space, while the Samsung layouts Loki also targets stay
// below it. Kept separate so further families can be added without
// touching the reconstructors.
func isLGRamdiskAddress(addr uint32) bool {
	return addr&0x80000000 != 0
}

// abootSize returns the tail stash Loki reserves for its aboot copy on
// the device family owning addr.
func abootSize(addr uint32, pageSize uint32) uint32 {
	if isLGRamdiskAddress(addr) {
		return pageSize
	}
	return abootTailSize
}
