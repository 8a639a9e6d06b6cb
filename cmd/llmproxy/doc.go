// Package main hosts the llmproxy CLI entrypoint and command graph.
//
// The Cobra-based command tree maps terminal invocations onto the proxy
// client: generation, retrieval, model info, file and text uploads, a
// retrieve-then-generate helper, and an interactive chat loop. It centralizes
// configuration resolution, logger setup, and client construction so
// subcommands only translate flags into requests and render results.
//
// Keep this package lean: add behaviour to internal/proxy or internal/rag
// first, then surface it through a command or flag here.
package main
