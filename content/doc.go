// Package content provides built-in loadable content descriptors.
//
// Each descriptor wraps one typed collection (mesh, structured volume, sphere
// set, capsule set, AMR block) and reports a projected cost equal to its
// approximate in-memory size in bytes. Splitters turn one large collection into
// several shard descriptors so the balancer has finer-grained units to place.
//
// Custom loaders (file formats, remote stores) can be wrapped with Func.
package content
