package prompt

import (
	"errors"
	"fmt"
)

// ErrMissingBlock is returned when a required block is absent.
var ErrMissingBlock = errors.New("missing required block")

// ContractError reports a prompt that lacks a required block.
type ContractError struct {
	Block string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("Missing required <%s> block in prompt", e.Block)
}

// Unwrap returns ErrMissingBlock.
func (e *ContractError) Unwrap() error {
	return ErrMissingBlock
}

// Request holds the prompt fields of an agent operation.
// Empty fields are treated as absent.
type Request struct {
	// Prompt is an explicit full prompt. When set it bypasses block assembly.
	Prompt string

	Role   string
	Task   string
	Input  string
	Schema string
}

// FromRequest builds the block mapping for the fields present in req,
// in ROLE, TASK, INPUT, SCHEMA order. It does not validate.
func FromRequest(req Request) *Blocks {
	blocks := NewBlocks()
	if req.Role != "" {
		blocks.Set(TagRole, req.Role)
	}
	if req.Task != "" {
		blocks.Set(TagTask, req.Task)
	}
	if req.Input != "" {
		blocks.Set(TagInput, req.Input)
	}
	if req.Schema != "" {
		blocks.Set(TagSchema, req.Schema)
	}
	return blocks
}

// Validate checks that the ROLE and TASK blocks are present.
func Validate(blocks *Blocks) error {
	if !blocks.Has(TagRole) {
		return &ContractError{Block: TagRole}
	}
	if !blocks.Has(TagTask) {
		return &ContractError{Block: TagTask}
	}
	return nil
}

// Build returns the prompt text for req. An explicit Prompt is returned
// verbatim; otherwise the present fields are composed into blocks.
func Build(req Request) (string, error) {
	if req.Prompt != "" {
		return req.Prompt, nil
	}

	blocks := FromRequest(req)
	if err := Validate(blocks); err != nil {
		return "", err
	}
	return Compose(blocks), nil
}
