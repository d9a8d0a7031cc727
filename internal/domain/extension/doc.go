// Package extension manages the browser extension catalog: loading
// unpacked directories, packing them into distributable archives and
// rendering the launch switches that inject enabled extensions into new
// browser instances.
//
// Identity follows the browser's own convention: 32 characters drawn from
// a-p, derived from sha256 of the absolute source path, or of the public
// key when packing with a signing key. Ids are stable across restarts and
// never reassigned.
//
// Records persist in sqlite and load into memory at startup; the registry
// serializes mutations and serves reads from memory.
package extension
