// Package chunk splits artifact content into overlapping retrievable segments.
package chunk

import "strings"

// Options controls segment size and overlap, both in bytes of content.
type Options struct {
	Size    int // target segment size
	Overlap int // bytes shared between consecutive segments
}

// DefaultOptions matches the engine-wide defaults.
func DefaultOptions() Options { return Options{Size: 500, Overlap: 50} }

// Split cuts content into overlapping segments of roughly opts.Size bytes.
// A hard boundary that would fall mid-sentence is pulled back to the last
// sentence terminator or line break, but only when the adjusted segment is
// still longer than half the target size; otherwise the hard cut stands so
// degenerate micro-chunks cannot occur. Empty segments are dropped.
func Split(content string, opts Options) []string {
	if opts.Size <= 0 {
		opts = DefaultOptions()
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		opts.Overlap = 0
	}
	if len(content) <= opts.Size {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var out []string
	start := 0
	for start < len(content) {
		end := start + opts.Size
		if end > len(content) {
			end = len(content)
		}
		seg := content[start:end]

		if end < len(content) {
			if cut := boundary(seg); cut > opts.Size/2 {
				seg = seg[:cut+1]
				end = start + cut + 1
			}
		}

		if trimmed := strings.TrimSpace(seg); trimmed != "" {
			out = append(out, trimmed)
		}
		if end >= len(content) {
			break
		}
		next := end - opts.Overlap
		if next <= start {
			// a deep boundary pullback can land end inside the overlap
			// window; skip the overlap rather than move the window backwards
			next = end
		}
		start = next
	}
	return out
}

// boundary returns the offset of the last sentence terminator or line break
// in seg, or -1 when there is none.
func boundary(seg string) int {
	dot := strings.LastIndexByte(seg, '.')
	nl := strings.LastIndexByte(seg, '\n')
	if dot > nl {
		return dot
	}
	return nl
}
