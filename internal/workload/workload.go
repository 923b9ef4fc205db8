// Package workload parses the bulk-load and instruction-file formats this
// engine's command-line driver accepts, grounded directly in
// original_source/src/lib_helper.rs's parse_instruction/bulkwrite/run_file.
// Bulk-load file parsing and workload generation sit outside the storage
// core's own scope; this package is the ambient CLI-side component that does
// that parsing before handing parsed records/operations to the core.
package workload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nyasuto/mozlsm/internal/record"
)

// OpKind distinguishes a workload line's instruction.
type OpKind int

const (
	// OpPut corresponds to a "p<key> <value>" line.
	OpPut OpKind = iota
	// OpGet corresponds to a "g<key>" line.
	OpGet
)

// Instruction is one parsed workload-file line.
type Instruction struct {
	Kind  OpKind
	Key   int32
	Value int32 // meaningful only for OpPut
}

// ParseBulkLoadFile reads "b<key> <value>" lines into records, suitable for
// handing directly to (*lsm.Tree).BulkLoad.
func ParseBulkLoadFile(r io.Reader) ([]record.Record, error) {
	var out []record.Record
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if text[0] != 'b' {
			return nil, fmt.Errorf("workload: line %d: bulk-load file must contain only b<key> <value> lines, got %q", line, text)
		}
		key, value, err := parseKeyValue(text[1:])
		if err != nil {
			return nil, fmt.Errorf("workload: line %d: %w", line, err)
		}
		out = append(out, record.Record{Key: key, Value: value})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("workload: read bulk-load file: %w", err)
	}
	return out, nil
}

// ParseInstructions reads a workload file's "p<key> <value>" / "g<key>"
// lines into Instructions, in file order.
func ParseInstructions(r io.Reader) ([]Instruction, error) {
	var out []Instruction
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		inst, err := parseInstruction(text)
		if err != nil {
			return nil, fmt.Errorf("workload: line %d: %w", line, err)
		}
		out = append(out, inst)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("workload: read instruction file: %w", err)
	}
	return out, nil
}

func parseInstruction(text string) (Instruction, error) {
	if text == "" {
		return Instruction{}, fmt.Errorf("empty instruction")
	}
	switch text[0] {
	case 'p':
		key, value, err := parseKeyValue(text[1:])
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Kind: OpPut, Key: key, Value: value}, nil
	case 'g':
		key, err := parseInt32(strings.TrimSpace(text[1:]))
		if err != nil {
			return Instruction{}, fmt.Errorf("get instruction: %w", err)
		}
		return Instruction{Kind: OpGet, Key: key}, nil
	default:
		return Instruction{}, fmt.Errorf("unrecognized instruction opcode %q", text[0])
	}
}

func parseKeyValue(rest string) (key, value int32, err error) {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected \"<key> <value>\", got %q", rest)
	}
	key, err = parseInt32(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("key: %w", err)
	}
	value, err = parseInt32(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("value: %w", err)
	}
	return key, value, nil
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}
