package render

import "errors"

var (
	// ErrParse indicates the template text could not be parsed, including
	// references to unknown top-level namespaces.
	ErrParse = errors.New("template parse failed")

	// ErrRender indicates the template failed during evaluation.
	ErrRender = errors.New("template render failed")
)
