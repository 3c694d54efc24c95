// Package mirror provides a declaration metadata registry that associates
// arbitrary payloads with Go types and their members, and resolves them
// through embedding-based inheritance chains.
//
// # Overview
//
// The mirror package is the runtime core of declkit. Libraries attach
// metadata to struct types at registration time (typically from init
// functions or generated code), and frameworks query that metadata later,
// either for a single class or merged across the class's ancestry. The
// registry is payload-agnostic: it stores values of any type and never
// inspects them.
//
// # Core Structures
//
// The package defines several key types:
//
//   - Store: The metadata store, holding one ClassMirror per decorated type
//   - ClassMirror: Per-class mirror with member namespaces and a parent link
//   - MethodMirror: Metadata for one method, with parameter positions
//   - PropertyMirror: Metadata for one property
//   - ParameterMirror: Metadata for one parameter position
//   - Snapshot: JSON-serializable export of an entire store
//
// A process-wide default store backs the package-level functions; tests
// and embedders can construct private stores with NewStore.
//
// # Class Identity
//
// Classes are identified by their normalized reflect.Type: pointer types
// are dereferenced, so *User and User resolve to the same mirror. Use
// TypeFor to name a class without a value:
//
//	cm := mirror.Resolve(mirror.TypeFor[User]())
//
// # Inheritance
//
// Go has no class hierarchy, so the registry derives one from struct
// embedding: a struct's anonymous fields are its bases, searched in
// declaration order, nearest registered ancestor first. This mirrors Go's
// own method promotion rules. A resolved mirror for an undecorated type
// whose ancestor is decorated carries a parent link to the ancestor's
// mirror and starts with empty namespaces of its own.
//
// # Example Usage
//
// Registering metadata, usually from an init function:
//
//	func init() {
//		mirror.Decorate(mirror.TypeFor[Widget](), &Table{Name: "widgets"})
//		mirror.DecorateProperty(mirror.TypeFor[Widget](), "Name", false, &Column{Name: "name"})
//		mirror.DecorateMethod(mirror.TypeFor[Widget](), "Render", false, &Route{Path: "/widgets/{id}"})
//	}
//
// Querying it back:
//
//	cm := mirror.Resolve(mirror.TypeFor[Widget]())
//	for _, meta := range cm.GetAllMetadata() {
//		if table, ok := meta.(*Table); ok {
//			fmt.Println(table.Name)
//		}
//	}
//	for _, m := range cm.GetAllMethods() {
//		// Inherited methods included, overrides shadowing ancestors.
//	}
//
// # Query Semantics
//
// Own-scope accessors (GetMetadata, GetMethods, GetProperties, GetMirrors)
// never consult the ancestry. The merged accessors follow two orders:
//
//   - GetAllMetadata concatenates payloads current-first: the class's own
//     payloads precede its parent's merged payloads.
//   - GetAllMirrors concatenates member mirrors ancestor-first, so
//     overriding members appear after the members they shadow.
//   - GetAllMethods and GetAllProperties merge maps with override
//     semantics: a name declared on the class wins over the ancestor's.
//
// Static members belong to the type declaration itself and never merge
// across the ancestry; their "all" forms return own entries only.
//
// # Concurrency
//
// All Store and ClassMirror operations are safe for concurrent use.
// Accessors return copies, so callers can iterate results without holding
// any registry state. Payloads themselves are shared by reference; treat
// them as immutable after registration.
//
// # Snapshots
//
// Export captures a store as a Snapshot document: every decorated class
// with its payloads marshaled to raw JSON, ordered by qualified name.
// Snapshots feed the introspection server, the CLI, and the archive, and
// can be diffed across builds.
package mirror
