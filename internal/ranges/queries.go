package ranges

import (
	"fmt"
	"strings"
)

// XQuery builders for the canonical BaseX store. Every mutation is a
// single update statement; BaseX applies the pending update list of one
// statement atomically.

// xqLiteral renders a string as a single-quoted XQuery literal.
func xqLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// xqNode escapes a serialized XML node for embedding in a direct element
// constructor, where single curly braces delimit enclosed expressions.
// Label and trait text is arbitrary user prose and may contain braces.
func xqNode(nodeXML string) string {
	nodeXML = strings.ReplaceAll(nodeXML, "{", "{{")
	return strings.ReplaceAll(nodeXML, "}", "}}")
}

func rangesDocQuery(db string) string {
	return fmt.Sprintf("(collection(%s)//lift-ranges)[1]", xqLiteral(db))
}

func rangeByIDQuery(db, rangeID string) string {
	return fmt.Sprintf("(collection(%s)//lift-ranges/range[@id = %s])[1]", xqLiteral(db), xqLiteral(rangeID))
}

// rangeInsertFallback inserts a whole range node into the lift-ranges
// document, creating the document itself when even that is absent.
func rangeInsertFallback(db, rangeXML string) string {
	return fmt.Sprintf(
		"if (exists(collection(%[1]s)/lift-ranges)) "+
			"then insert node %[2]s into (collection(%[1]s)/lift-ranges)[1] "+
			"else db:add(%[1]s, document { <lift-ranges>%[2]s</lift-ranges> }, 'ranges.lift-ranges')",
		xqLiteral(db), rangeXML)
}

func insertRangeQuery(db, nodeXML string) string {
	return rangeInsertFallback(db, xqNode(nodeXML))
}

// replaceRangeQuery deletes and reinserts the range node; update is never
// an in-place patch. A range with no canonical node yet (config-fallback
// or custom-only) is materialized on the spot.
func replaceRangeQuery(db, rangeID, nodeXML string) string {
	return fmt.Sprintf(
		"let $old := (collection(%[1]s)//lift-ranges/range[@id = %[2]s])[1] "+
			"return (if (exists($old)) then delete node $old else (), %[3]s)",
		xqLiteral(db), xqLiteral(rangeID), rangeInsertFallback(db, xqNode(nodeXML)))
}

func deleteRangeQuery(db, rangeID string) string {
	return fmt.Sprintf("delete node collection(%s)//lift-ranges/range[@id = %s]",
		xqLiteral(db), xqLiteral(rangeID))
}

// insertElementQuery targets the range node when it exists; otherwise the
// supplied whole-range node (carrying the element) is inserted instead, so
// the first element added to a config-fallback or custom-only range
// materializes its canonical container.
func insertElementQuery(db, rangeID, elementXML, rangeXML string) string {
	return fmt.Sprintf(
		"let $range := (collection(%[1]s)//lift-ranges/range[@id = %[2]s])[1] "+
			"return if (exists($range)) then insert node %[3]s into $range else (%[4]s)",
		xqLiteral(db), xqLiteral(rangeID), xqNode(elementXML), rangeInsertFallback(db, xqNode(rangeXML)))
}

func replaceElementQuery(db, rangeID, elementID, elementXML, rangeXML string) string {
	return fmt.Sprintf(
		"let $range := (collection(%[1]s)//lift-ranges/range[@id = %[2]s])[1] "+
			"let $old := $range/range-element[@id = %[3]s] "+
			"return (if (exists($old)) then delete node $old else (), "+
			"if (exists($range)) then insert node %[4]s into $range else (%[5]s))",
		xqLiteral(db), xqLiteral(rangeID), xqLiteral(elementID), xqNode(elementXML), rangeInsertFallback(db, xqNode(rangeXML)))
}

func deleteElementQuery(db, rangeID, elementID string) string {
	return fmt.Sprintf("delete node collection(%s)//lift-ranges/range[@id = %s]/range-element[@id = %s]",
		xqLiteral(db), xqLiteral(rangeID), xqLiteral(elementID))
}

// fieldKind distinguishes the query shapes for range-value references in
// dictionary entries. Grammatical category and relation type live in
// dedicated structural fields; every other range is referenced through a
// named trait. Callers must not assume one universal template.
type fieldKind int

const (
	fieldGrammaticalInfo fieldKind = iota
	fieldRelationType
	fieldTrait
)

func fieldKindFor(rangeID string) fieldKind {
	switch canonicalAlias(rangeID) {
	case "grammatical-info", "from-part-of-speech":
		return fieldGrammaticalInfo
	case "lexical-relation":
		return fieldRelationType
	default:
		return fieldTrait
	}
}

// refNodePath is the XPath, relative to an entry, selecting the reference
// nodes for a range, optionally narrowed to one value.
func refNodePath(rangeID, value string) string {
	var path, attr string
	switch fieldKindFor(rangeID) {
	case fieldGrammaticalInfo:
		path, attr = "sense/grammatical-info", "value"
	case fieldRelationType:
		path, attr = "relation", "type"
	default:
		path = fmt.Sprintf(".//trait[@name = %s]", xqLiteral(rangeID))
		attr = "value"
	}
	if value != "" {
		path += fmt.Sprintf("[@%s = %s]", attr, xqLiteral(value))
	}
	return path
}

func refValueAttr(rangeID string) string {
	if fieldKindFor(rangeID) == fieldRelationType {
		return "type"
	}
	return "value"
}

// usageQuery matches every entry referencing the range (or one of its
// values) and constructs a compact result document with per-entry counts.
func usageQuery(db, rangeID, value string) string {
	path := refNodePath(rangeID, value)
	return fmt.Sprintf(
		"<refs>{ for $e in collection(%s)//entry[%s] "+
			"return <ref id=\"{data($e/@id)}\" label=\"{($e/lexical-unit/form/text/text())[1]}\" count=\"{count($e/%s)}\"/> }</refs>",
		xqLiteral(db), path, path)
}

// usageByElementQuery lists every reference node with its value and owning
// entry; aggregation happens client-side.
func usageByElementQuery(db, rangeID string) string {
	return fmt.Sprintf(
		"<refs>{ for $t in collection(%s)//entry/%s "+
			"return <ref value=\"{data($t/@%s)}\" id=\"{data($t/ancestor::entry/@id)}\" label=\"{($t/ancestor::entry/lexical-unit/form/text/text())[1]}\"/> }</refs>",
		xqLiteral(db), relaxedRefPath(rangeID), refValueAttr(rangeID))
}

// relaxedRefPath is refNodePath without a value filter and anchored for a
// for-clause (traits may sit at entry or sense level).
func relaxedRefPath(rangeID string) string {
	switch fieldKindFor(rangeID) {
	case fieldGrammaticalInfo:
		return "sense/grammatical-info"
	case fieldRelationType:
		return "relation"
	default:
		return fmt.Sprintf("(. | sense)/trait[@name = %s]", xqLiteral(rangeID))
	}
}

// migrationQuery builds the single bulk rewrite or removal statement. An
// empty oldValue targets every value of the field.
func migrationQuery(db, rangeID, oldValue, operation, newValue string) string {
	path := refNodePath(rangeID, oldValue)
	attr := refValueAttr(rangeID)
	if operation == OpRemove {
		return fmt.Sprintf("delete node collection(%s)//entry/%s", xqLiteral(db), path)
	}
	return fmt.Sprintf(
		"for $a in collection(%s)//entry/%s/@%s return replace value of node $a with %s",
		xqLiteral(db), path, attr, xqLiteral(newValue))
}
