// Package schemagen writes the wire-protocol JSON schema for client tooling.
package schemagen

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"arena/internal/net/proto"
)

// Execute parses args and writes the schema to --out, or to stdout when the
// flag is empty or "-".
func Execute(stdout io.Writer, stderr io.Writer, args []string) error {
	flags := flag.NewFlagSet("schema", flag.ContinueOnError)
	flags.SetOutput(stderr)
	out := flags.String("out", "-", "output path for the generated schema")
	if err := flags.Parse(args); err != nil {
		return err
	}

	data, err := proto.SchemaJSON()
	if err != nil {
		return fmt.Errorf("schemagen: failed rendering schema: %w", err)
	}
	if *out == "" || *out == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return writeAtomic(*out, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("schemagen: failed creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("schemagen: failed creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("schemagen: failed writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("schemagen: failed writing output %s: %w", path, err)
	}
	return nil
}
