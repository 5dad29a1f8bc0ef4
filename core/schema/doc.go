/*
Package schema is the static catalog of HSDS record types.

Each record type has a name (the path segment clients post to), a topic (the
distribution channel its records are published on) and an ordered list of
field specs. The catalog is built once and never changes afterwards, so it
is safe for concurrent use without locking.

# Field Kinds

  - string: free text with an optional maximum length and format
  - int:    whole number with optional bounds
  - float:  number with optional bounds
  - enum:   string restricted to a fixed value set
  - ref:    identifier of another record; only its shape is checked

# Formats

String fields may carry a format: email, url, phone, date, time, language
or currency. Formats are checked by the validation package.

# Lookup

	fields, ok := schema.Lookup("organization")
	if !ok {
		// unknown record type
	}

Every record type declares an id field. None declares source_id, which is
reserved for the provenance stamp added at publish time.
*/
package schema
