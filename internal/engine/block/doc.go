// Package block defines the unit of document content and the tool contract.
//
// A Block is an id, a tool type, a JSON-shaped data payload owned by the tool,
// and per-block tunes. Blocks never reference their document; position is the
// block's index in the document sequence.
//
// # Tools and capabilities
//
// Every block type is served by a Tool registered in a Registry. Save and
// Validate are required. Merge, split and empty-data support are optional
// capabilities and are queried at runtime:
//
//	if m, ok := block.AsMerger(tool); ok {
//	    merged, err := m.Merge(target.Data, source.Data)
//	    ...
//	}
//
// The engine never branches on a tool's concrete type.
package block
