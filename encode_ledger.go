package bookkeeper

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// DecodeLedger decodes directives from a stream of JSONL data, dispatching
// each line on its "directive" field, and returns a sorted Ledger.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	ledger := NewLedger()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}

		var identifier struct {
			Directive DirectiveKind `json:"directive"`
		}
		if err := json.Unmarshal(lineBytes, &identifier); err != nil {
			return nil, fmt.Errorf("could not identify directive in line %q: %w", string(lineBytes), err)
		}

		var decoded Directive
		var err error

		switch identifier.Directive {
		case KindTransaction:
			var tx Transaction
			err = json.Unmarshal(lineBytes, &tx)
			decoded = tx
		case KindBalance:
			var b Balance
			err = json.Unmarshal(lineBytes, &b)
			decoded = b
		case KindPrice:
			var p Price
			err = json.Unmarshal(lineBytes, &p)
			decoded = p
		default:
			err = fmt.Errorf("unknown directive kind: %q", identifier.Directive)
		}

		if err != nil {
			return nil, err
		}
		ledger.Append(decoded)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}

	// Perform a stable sort on the ledger based on the directive date.
	ledger.stableSort()

	return ledger, nil
}

// EncodeDirective marshals a single directive to JSON and writes it to the
// writer, followed by a newline, in JSONL format. Keys are written in a fixed
// order so the output is canonical.
func EncodeDirective(w io.Writer, d Directive) error {
	decimal.MarshalJSONWithoutQuotes = true
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal directive: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write directive: %w", err)
	}
	return nil
}

// EncodeLedger reorders directives by date and persists them to an io.Writer
// in JSONL format. The sort is stable, meaning directives on the same day
// maintain their original relative order.
func EncodeLedger(w io.Writer, ledger *Ledger) error {
	ledger.stableSort()
	for _, d := range ledger.directives {
		if err := EncodeDirective(w, d); err != nil {
			return err
		}
	}
	return nil
}
