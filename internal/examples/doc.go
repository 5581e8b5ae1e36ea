// Package examples holds the HTML documents offered by the sandbox picker.
//
// The documents ship embedded in the binary under samples/ and are loaded
// into a read-only Store once at startup. A directory on disk may shadow
// individual samples: a file found there wins, otherwise the embedded copy
// is used.
//
// Documents are keyed by filename (<id>.htm). Ids are validated before any
// read so a configured id can never address a path outside samples/.
package examples
