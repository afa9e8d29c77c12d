// Package main provides the ownership CLI.
//
// The CLI supports:
//   - compute: Direct and indirect ownership tables for a calculation
//   - report: Per-object sums and the strictly indirect layer
//   - validate: Check a calculation file and its references
//   - doctor: Run health checks on a calculation (and optionally the store)
//   - graph: Emit the renderer graph as JSON or DOT
//   - sample: Write the demonstration calculation
//   - migrate, status, save, load: Manage the SQL store
//   - sync: Mirror a calculation graph into Neo4j
//   - serve: Run the HTTP API
//
// Calculations are addressed as file paths, file:// URLs, s3://bucket/key or
// "-" for stdin. Commands that need the store read database settings from
// ownership.yaml, OWNERSHIP_* environment variables or --db.
//
// Usage:
//
//	ownership [flags] <command>
package main

func main() {
	Execute()
}
