package ut

// CheckLayout fails when a type shared with another module does not have
// the size both sides agreed on. It is meant for package init and service
// construction, never for the hot path.
func CheckLayout(name string, size, agreed uintptr) {
	if size != agreed {
		Fatalf("ut: %s size %d does not match agreed size %d", name, size, agreed)
	}
}
