package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"

	"github.com/hupe1980/meshstream/core"
)

// jqFilter applies a jq program to the JSON form of each stream item.
type jqFilter struct {
	code *gojq.Code
}

func newJQFilter(expr string) (*jqFilter, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile jq expression %q: %w", expr, err)
	}
	return &jqFilter{code: code}, nil
}

// write runs the program on item and writes every non-null result as one
// JSON line.
func (f *jqFilter) write(w io.Writer, item core.StreamItem) error {
	b, err := json.Marshal(item)
	if err != nil {
		return err
	}
	var input any
	if err := json.Unmarshal(b, &input); err != nil {
		return err
	}

	iter := f.code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return err
		}
		if v == nil {
			continue
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(out)); err != nil {
			return err
		}
	}
}
