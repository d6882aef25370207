// Package scan classifies raw source text without parsing it. A single
// left-to-right pass assigns every character to a string, template, regex,
// comment or plain code region; the other operations (declaration
// rewriting, await detection, name extraction, completion contexts,
// completeness verdicts) are built on that pass, so the heuristics cannot
// disagree about where a literal starts or ends.
//
// Every function is total over its string input: editor text is invalid
// most of the time it is being typed, so malformed input degrades to open
// regions and conservative verdicts instead of errors.
package scan
