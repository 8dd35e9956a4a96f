// Package dom wraps the pre-installed page-side scripts (processDom,
// processAllOfDom, waitForDomSettle, scrollToHeight, debugDom,
// cleanupDebug) behind a typed Go interface, and provides the Settle
// Synchronizer the rest of the control loop relies on before every DOM
// read.
//
// The scripts themselves are an external collaborator: this package
// specifies and drives their interface, and embeds one concrete
// implementation (domscript.js) as the default page-side install so the
// module is runnable end to end, but any page that already exposes the
// same functions on window works unmodified.
package dom

import _ "embed"

//go:embed domscript.js
var pageScript []byte

// ChunkDescriptor is one chunk of the DOM, returned from processDom.
type ChunkDescriptor struct {
	// OutputString is the text serialization of elements in this chunk,
	// one per line, each prefixed with its numeric element ID.
	OutputString string
	// SelectorMap maps numeric element ID -> XPath string. Defined for
	// every element ID that may appear in OutputString.
	SelectorMap map[int]string
	// Chunk is the index of the chunk just served.
	Chunk int
	// Chunks is the ordered sequence of all chunk indices.
	Chunks []int
}

// FullDOM is the result of processAllOfDom: a full-page flat
// serialization with no chunking.
type FullDOM struct {
	OutputString string
	SelectorMap  map[int]string
}
