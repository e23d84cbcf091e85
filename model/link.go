package model

import "fmt"

// Link is a clickable region on a page.
type Link struct {
	Rect   BBox
	Target LinkTarget
}

// LinkTarget is the destination of a Link. The set of implementations is
// closed: InternalPage, ExternalURI and DeviceFileRef.
type LinkTarget interface {
	isLinkTarget()
	String() string
}

// InternalPage targets another page of the same document.
type InternalPage struct {
	Index int // 0-based
}

// ExternalURI targets a web address.
type ExternalURI struct {
	URI string
}

// DeviceFileRef targets a page of another notebook on the device.
type DeviceFileRef struct {
	Path string
	Page int // 0-based
}

func (InternalPage) isLinkTarget()  {}
func (ExternalURI) isLinkTarget()   {}
func (DeviceFileRef) isLinkTarget() {}

func (t InternalPage) String() string  { return fmt.Sprintf("page %d", t.Index+1) }
func (t ExternalURI) String() string   { return t.URI }
func (t DeviceFileRef) String() string { return fmt.Sprintf("%s#%d", t.Path, t.Page+1) }

// Title is an outline heading marked on a page.
type Title struct {
	Page  int // 0-based
	Level int // 1 is the top level
	Text  string
	Rect  BBox
}

// Label returns the title text, or a page-based fallback.
func (t Title) Label() string {
	if t.Text != "" {
		return t.Text
	}
	return fmt.Sprintf("Page %d", t.Page+1)
}

// Keyword is a recognized keyword marked on a page.
type Keyword struct {
	Page int
	Text string
	Rect BBox
}
