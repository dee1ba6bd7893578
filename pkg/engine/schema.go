package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Mindburn-Labs/charter/pkg/fault"
)

const (
	identityPattern = `^0[xX][0-9a-fA-F]{40}$`
	amountPattern   = `^[0-9]+$`
)

func objectSchema(properties string, required ...string) string {
	req := "[]"
	if len(required) > 0 {
		req = `["` + strings.Join(required, `","`) + `"]`
	}
	return fmt.Sprintf(`{"type":"object","properties":{%s},"required":%s,"additionalProperties":false}`, properties, req)
}

var argumentSchemas = map[string]string{
	OpRegister:            objectSchema(`"name":{"type":"string"}`, "name"),
	OpStoreData:           objectSchema(`"key":{"type":"string"},"value":{"type":"string"}`, "key", "value"),
	OpRetrieveData:        objectSchema(`"key":{"type":"string"}`, "key"),
	OpDeposit:             objectSchema(``),
	OpDistributeFunds:     objectSchema(``),
	OpConditionalTransfer: objectSchema(`"recipient":{"type":"string","pattern":"` + identityPattern + `"},"amount":{"type":"string","pattern":"` + amountPattern + `"}`, "recipient", "amount"),
	OpCreateProposal:      objectSchema(`"description":{"type":"string"}`, "description"),
	OpVote:                objectSchema(`"proposal_id":{"type":"integer","minimum":0}`, "proposal_id"),
	OpGetProposal:         objectSchema(`"proposal_id":{"type":"integer","minimum":0}`, "proposal_id"),
}

// schemaSet holds the compiled argument schema of every operation.
type schemaSet struct {
	byOp map[string]*jsonschema.Schema
}

func compileSchemas() (*schemaSet, error) {
	set := &schemaSet{byOp: make(map[string]*jsonschema.Schema, len(argumentSchemas))}
	for op, src := range argumentSchemas {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://charter.schemas.local/calls/%s.schema.json", op)
		if err := c.AddResource(url, strings.NewReader(src)); err != nil {
			return nil, fmt.Errorf("engine: load %s schema: %w", op, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("engine: compile %s schema: %w", op, err)
		}
		set.byOp[op] = compiled
	}
	return set, nil
}

// validate checks raw against the schema for op and returns the compact
// arguments. Absent arguments are treated as an empty object.
func (s *schemaSet) validate(op string, raw json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage(`{}`)
	}
	schema, ok := s.byOp[op]
	if !ok {
		return nil, fault.New(fault.KindInvalidArgument, op, "unknown operation")
	}

	if !utf8.Valid(raw) {
		return nil, fault.New(fault.KindInvalidArgument, op, "arguments are not valid UTF-8")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fault.New(fault.KindInvalidArgument, op, "malformed arguments: %v", err)
	}
	if dec.More() {
		return nil, fault.New(fault.KindInvalidArgument, op, "malformed arguments: trailing data")
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fault.New(fault.KindInvalidArgument, op, "arguments rejected: %v", err)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fault.New(fault.KindInvalidArgument, op, "malformed arguments: %v", err)
	}
	return buf.Bytes(), nil
}
