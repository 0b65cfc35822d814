package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dshills/blockstorm/internal/engine/block"
	"github.com/dshills/blockstorm/internal/engine/document"
)

// Step ops.
const (
	OpLoad        = "load"
	OpInsert      = "insert"
	OpDelete      = "delete"
	OpMove        = "move"
	OpUpdate      = "update"
	OpMerge       = "merge"
	OpSplit       = "split"
	OpUndo        = "undo"
	OpRedo        = "redo"
	OpTransaction = "transaction"
	OpCaret       = "caret"
	OpCheckpoint  = "checkpoint"
	OpUndoTo      = "undo-to"
	OpRedoTo      = "redo-to"
)

// Script is a parsed edit script.
type Script struct {
	// Name identifies the script in output and logs.
	Name string `yaml:"name"`

	// Description explains what the script exercises.
	Description string `yaml:"description,omitempty"`

	// Records is the starting document. When empty the engine's current
	// document is used.
	Records []document.Record `yaml:"records,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`
}

// Step is a single engine call.
type Step struct {
	Op string `yaml:"op"`

	// ID is the block the step acts on. Used by delete, move, update,
	// split and caret.
	ID string `yaml:"id,omitempty"`

	// Target and Source are the blocks of a merge.
	Target string `yaml:"target,omitempty"`
	Source string `yaml:"source,omitempty"`

	// Block is the block to insert. An empty id is generated.
	Block *document.Record `yaml:"block,omitempty"`

	// Index is the insert position; nil appends.
	Index *int `yaml:"index,omitempty"`

	// To is the destination index of a move.
	To int `yaml:"to,omitempty"`

	// Offset is the split point or caret offset. A caret offset of -1 means
	// the end of the block.
	Offset int `yaml:"offset,omitempty"`

	// Data is the partial data of an update.
	Data block.Data `yaml:"data,omitempty"`

	// Records is the document of a load.
	Records []document.Record `yaml:"records,omitempty"`

	// Label names a transaction's undo entry, or the checkpoint a
	// checkpoint, undo-to or redo-to step sets or returns to.
	Label string `yaml:"label,omitempty"`

	// Fail rolls a transaction back after its steps ran.
	Fail bool `yaml:"fail,omitempty"`

	// Steps are the nested steps of a transaction.
	Steps []Step `yaml:"steps,omitempty"`

	// As binds the id produced by insert or split to a name.
	As string `yaml:"as,omitempty"`

	// Expect is checked after the step ran.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome a step must have.
type Expect struct {
	// Error is a substring of the error the step must fail with.
	Error string `yaml:"error,omitempty"`

	// Order lists the block ids of the whole document in order.
	Order []string `yaml:"order,omitempty"`

	// Text maps block ids to their "text" data.
	Text map[string]string `yaml:"text,omitempty"`

	// Changed is the result an undo or redo must report.
	Changed *bool `yaml:"changed,omitempty"`
}

// LoadFile reads and parses the script at path.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a script and checks every step. Unknown fields are rejected.
func Parse(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty script")
		}
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	if err := validateSteps(s.Steps, ""); err != nil {
		return nil, err
	}
	return &s, nil
}

func validateSteps(steps []Step, prefix string) error {
	for i, st := range steps {
		path := stepPath(prefix, i)
		if err := st.validate(); err != nil {
			return &StepError{Path: path, Op: st.Op, Err: err}
		}
		if st.Op == OpTransaction {
			if err := validateSteps(st.Steps, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func (st Step) validate() error {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s requires %s", ErrInvalidStep, st.Op, field)
	}
	switch st.Op {
	case OpLoad, OpUndo, OpRedo:
	case OpInsert:
		if st.Block == nil {
			return missing("block")
		}
	case OpDelete, OpMove, OpUpdate, OpSplit, OpCaret:
		if st.ID == "" {
			return missing("id")
		}
	case OpCheckpoint, OpUndoTo, OpRedoTo:
		if st.Label == "" {
			return missing("label")
		}
	case OpMerge:
		if st.Target == "" || st.Source == "" {
			return missing("target and source")
		}
	case OpTransaction:
		if len(st.Steps) == 0 && !st.Fail {
			return missing("steps")
		}
	case "":
		return fmt.Errorf("%w: missing op", ErrInvalidStep)
	default:
		return fmt.Errorf("%w %q", ErrUnknownOp, st.Op)
	}
	if st.As != "" && st.Op != OpInsert && st.Op != OpSplit {
		return fmt.Errorf("%w: %s cannot bind ids", ErrInvalidStep, st.Op)
	}
	return nil
}

func stepPath(prefix string, i int) string {
	n := strconv.Itoa(i + 1)
	if prefix == "" {
		return n
	}
	return prefix + "." + n
}
