// Package note reads the handwritten notebook container.
//
// A notebook is a single file made of length-prefixed blocks addressed by
// absolute offset. The file starts with a fixed header naming the container
// version and ends with a trailer pointing at the footer block, which in turn
// indexes every page, title, keyword and link block:
//
//	0      "note"
//	4      SN_FILE_VER_yyyymmnn        version signature
//	24..   blocks: u32 length | payload | [u32 CRC-32]
//	end-8  "tail" | u32 footer address
//
// Metadata blocks hold <KEY:VALUE> tags. Stroke blocks hold the binary
// records decoded by package stroke.
//
// # Versions
//
// Three layouts are understood and dispatched once, when the header is
// read:
//
//   - SN_FILE_VER_20200001: single ink layer, no pressure
//   - SN_FILE_VER_20210010: named layers with pressure
//   - SN_FILE_VER_20230015: as above, with a CRC-32 after every block
//
// Any other well-formed signature fails with [ErrUnsupportedVersion].
//
// # Laziness
//
// [Parse] decodes only metadata: the header, footer, and the link, title
// and keyword blocks. Layers and strokes are decoded when [File.Page] is
// called, so large notebooks can be emitted one page at a time.
//
// Basic usage:
//
//	f, err := note.Open("20240307_101500.note", note.Options{})
//	if err != nil {
//	    // errors.Is(err, note.ErrTruncatedBlock) etc.
//	}
//	doc, err := f.Document()
package note
