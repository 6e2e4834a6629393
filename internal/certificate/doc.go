// Package certificate turns a participant's spreadsheet row into a bound,
// display-safe certificate view.
//
// # Pipeline
//
// A lookup runs the same steps every time, with nothing cached between calls:
//
//  1. [Service.Lookup] trims the query and rejects it if empty
//  2. The configured [sheet.Source] fetches the export
//  3. The [sheet.Parser] turns it into a table
//  4. [ResolveColumns] decides which header plays each [Role]
//  5. [FindRecord] locates the first non-empty record whose identifier equals the query
//  6. [Binder.Bind] produces a [View] of escaped [Text] values with defaults filled in
//
// Each step is tracked by a [Flow] state machine so logs show exactly where a
// lookup stopped.
//
// # Column Resolution
//
// Headers are matched case-insensitively by substring, first header wins:
//
//	identifier  "id"
//	name        "name"
//	course      "course", "subject"
//	date        "date"
//
// When no header matches, identifier, name and course fall back to columns 0, 1
// and 2. Date has no positional fallback. A role whose fallback column does not
// exist stays unresolved and is defaulted when binding.
//
// # Identifier Matching
//
// Matching is exact and case-sensitive. The query is trimmed once before lookup;
// stored identifiers are compared as-is, so a cell holding " C100" does not
// match the query "C100".
//
// # Escaping
//
// Spreadsheet content is untrusted. A [Text] can only be built by escaping a raw
// string, and [Text.HTML] is the only accessor intended for markup. Renderers
// write Text.HTML() directly and never escape or concatenate raw values.
//
// # Error Codes Reference
//
//	SRC001  - Transport: the sheet could not be downloaded
//	SRC002  - Empty table: the sheet has no usable records
//	SRC003  - Malformed table: the sheet could not be parsed
//	CERT001 - Not found: no record with the queried identifier
//	CERT002 - Empty query: no identifier was entered
//	EXP001  - Rasterization: image export failed
//	EXP002  - Busy: too many exports in progress
//	EXP003  - Nothing rendered: export requested before a lookup
//	EXP004  - Popup blocked: the print window could not open
//	RATE001 - Rate limited
//	REQ001  - Request cancelled
//	REQ002  - Request timed out
//	ERR000  - Unknown error
package certificate
