package render

import "bytes"

// normalizeSVG tightens inline style declarations that oksvg would
// otherwise skip.
func normalizeSVG(svg []byte) []byte {
	out := svg
	for _, prop := range [][]byte{[]byte("fill"), []byte("stroke"), []byte("stop-color")} {
		loose := append(append([]byte{}, prop...), ": #"...)
		tight := append(append([]byte{}, prop...), ":#"...)
		out = bytes.ReplaceAll(out, loose, tight)
	}
	out = bytes.ReplaceAll(out, []byte("fill:000000"), []byte("fill:#000000"))
	return out
}
