// Package cat is the catalog-side user of the B-tree node reserve. Every
// catalog operation that inserts or deletes records brackets its B-tree
// work with Preflight and Postflight.
package cat

import (
	"unsafe"

	"github.com/wilhasse/hfs-go/btr"
	"github.com/wilhasse/hfs-go/ut"
)

// CookieSize is the size of the opaque state a catalog operation carries.
const CookieSize = btr.ReserveHandleSize

// Cookie is the catalog's opaque per-operation state. It must not be copied
// between Preflight and Postflight.
type Cookie struct {
	handle btr.ReserveHandle
}

func init() {
	ut.CheckLayout("cat.Cookie", unsafe.Sizeof(Cookie{}), CookieSize)
}

// Held reports whether the cookie still pins nodes on its own behalf.
func (c *Cookie) Held() bool {
	return c.handle.State() == btr.HandleOwning
}

// Reserved returns the nodes pinned through this cookie.
func (c *Cookie) Reserved() int32 {
	return c.handle.Reserved()
}
