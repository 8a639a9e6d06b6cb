// Package rag turns retrieve responses into prompt context for generation.
//
// The proxy's retrieve operation returns the documents of a session that
// match a query, each with a summary and its matching chunks. ParseContext
// decodes that payload and FormatContext renders it as a numbered text block
// that AugmentQuery appends to a query before calling generate.
package rag
