/*
Package schema defines the shape model used to drive wire serialization.

A shape is a named, traited description of a data type. Shapes are
immutable once built and are usually created through the registry package
so that each one is reachable by its qualified name ("namespace#Name").

# Shape Variants

  - Simple:    a primitive sentinel (string, numeric, blob, ...) plus traits
  - List:      one value schema
  - Map:       one value schema; keys are always strings
  - Structure: ordered members, each a target plus member trait overrides
  - Operation: input and output schemas
  - Error:     a Structure with an error factory and fault traits

# References

Anywhere a shape is expected a Ref is accepted:

	schema.String                           // primitive sentinel
	schema.ListModifier | schema.Numeric    // list of numbers, no allocation
	itemShape                               // a Shape
	schema.Member{Target: itemShape, ...}   // a member occurrence
	schema.Lazy(func() schema.Ref { ... })  // deferred, for recursive shapes

# Normalized Views

Normalize turns any Ref into a *Normalized, a uniform view with type
predicates, trait queries and traversal:

	ns := schema.Of(input)
	for name, member := range must(ns.StructIterator()) {
		traits := member.MergedTraits()
		...
	}

Member traits win over the target's own traits in MergedTraits.

# Trait Bit-Vectors

Members that only carry boolean binding flags can use TraitBits. The bit
order is fixed: httpLabel, idempotent, idempotencyToken, sensitive,
httpPayload, httpResponseCode, httpQueryParams.

	schema.MemberBits(schema.String, schema.BitHTTPLabel)
*/
package schema
