// Package main provides the entry point for the shopscan CLI.
//
// shopscan discovers product detail pages on e-commerce sites. It crawls
// a shop from its home page, classifies product URLs, and writes the
// discovered catalog as JSON documents.
//
// Usage:
//
//	shopscan crawl <shop-url>
//	shopscan crawl --list <file>
//
// See --help for all available options.
package main

// main is the entry point for shopscan.
func main() {
	Execute()
}
