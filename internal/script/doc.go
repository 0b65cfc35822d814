// Package script replays YAML edit scripts against an engine.
//
// A script names an optional starting document and a list of steps. Each
// step is one engine call:
//
//	name: split-and-merge
//	records:
//	  - {id: a, type: paragraph, data: {text: helloworld}}
//	steps:
//	  - op: split
//	    id: a
//	    offset: 5
//	    as: tail
//	  - op: merge
//	    target: a
//	    source: $tail
//	    expect:
//	      order: [a]
//	      text: {a: helloworld}
//	  - op: undo
//
// Ids produced by insert and split are bound with "as" and referenced later
// as "$name". A transaction step groups nested steps into one undo entry;
// "fail: true" rolls the group back after its steps ran. A step whose
// expect clause names an error passes when the call fails with a message
// containing that text.
//
// A checkpoint step records the history position under its label; undo-to
// and redo-to return to it.
//
// Steps: load, insert, delete, move, update, merge, split, undo, redo,
// transaction, caret, checkpoint, undo-to, redo-to.
package script
