package device

import (
	"context"
	"io"
	"os"
)

// Mirror fetches notebooks from the device and keeps a local copy of each
// under Root. Copies whose size matches the device listing are read locally
// instead of downloaded again, unless Force is set.
type Mirror struct {
	Client *Client
	Root   string
	Force  bool

	sizes map[string]int64
}

// NewMirror returns a Mirror that knows the listed sizes of entries.
func NewMirror(c *Client, root string, force bool, entries []Entry) *Mirror {
	sizes := make(map[string]int64, len(entries))
	for _, e := range entries {
		sizes[e.URI] = e.Size
	}
	return &Mirror{Client: c, Root: root, Force: force, sizes: sizes}
}

// Fetch saves the notebook at uri under Root and copies it to w.
func (m *Mirror) Fetch(ctx context.Context, uri string, w io.Writer) error {
	size, listed := m.sizes[uri]
	local, _, err := m.Client.Download(ctx, Entry{URI: uri, Size: size}, m.Root, m.Force || !listed)
	if err != nil {
		return err
	}
	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
