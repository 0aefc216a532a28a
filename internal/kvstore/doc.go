package kvstore

// Package kvstore is a small embedded document store on top of bbolt.
//
// A Store holds named object stores (one bucket each). Every object store
// has a key contract: either an in-line key path, a top-level JSON field of
// the stored document, or out-of-line keys supplied by the caller. The
// contract is recorded in a metadata bucket together with the schema
// version. When the version goes up and a recorded contract no longer
// matches the declared one, that object store is dropped and recreated.
//
// Values are stored as JSON, so every read returns a fresh copy.
