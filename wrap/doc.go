// Package wrap contains the collaborators the function bridge adapts:
//
//   - Library resolves a wrap name to its descriptor (Info), either from a
//     remote directory (RemoteLibrary) or a local YAML file (FileLibrary).
//   - Client invokes a method on a wrap addressed by URI (HTTPClient talks to
//     an invocation gateway over HTTP).
//   - SchemaLoader fetches a wrap's schema document from the URL named in its
//     descriptor, with an optional explicit cache.
//
// Wraps are self-describing executable packages addressed by URIs such as
// wrap://ipfs/Qm... or the short form ens/wraps.eth:ethereum@1.0.0.
package wrap
