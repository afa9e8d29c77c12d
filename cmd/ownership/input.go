package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Stoky555/ownership-graph/internal/blob"
	"github.com/Stoky555/ownership-graph/internal/blob/core"
	"github.com/Stoky555/ownership-graph/internal/blob/s3"
	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/internal/store"
	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

// stdinPath reads the calculation from standard input.
const stdinPath = "-"

var stdin io.Reader = os.Stdin

func blobOptions() blob.Options {
	return blob.Options{
		Driver: cfg.Blob.Driver,
		Root:   cfg.Blob.Root,
		S3: s3.Config{
			Bucket:    cfg.Blob.S3.Bucket,
			Region:    cfg.Blob.S3.Region,
			Endpoint:  cfg.Blob.S3.Endpoint,
			PathStyle: cfg.Blob.S3.PathStyle,
		},
	}
}

// readCalculation loads and parses a calculation from a path, URL or stdin.
func readCalculation(ctx context.Context, raw string) (snapshot.Calculation, error) {
	data, label, err := readDocument(ctx, raw)
	if err != nil {
		return snapshot.Calculation{}, err
	}
	calc, err := snapshot.Parse(data)
	if err != nil {
		return snapshot.Calculation{}, cli.SnapshotParseError("parsing "+label, err)
	}
	log.Debug("calculation read", "location", label, "ownerships", len(calc.Ownerships))
	return calc, nil
}

// readDocument returns the raw bytes at raw and a label for messages.
func readDocument(ctx context.Context, raw string) ([]byte, string, error) {
	if raw == "" {
		return nil, "", cli.ConfigError("calculation file is required (pass it as an argument or set snapshot in config)", nil)
	}
	if raw == stdinPath {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", cli.GeneralError("reading stdin", err)
		}
		return data, "stdin", nil
	}

	loc, err := blob.ParseLocation(raw)
	if err != nil {
		return nil, "", cli.ConfigError("calculation location", err)
	}
	st, err := blob.OpenLocation(ctx, loc, blobOptions())
	if err != nil {
		return nil, "", cli.StoreConnectError("opening "+loc.String(), err)
	}
	_, body, err := st.Get(ctx, loc.Key)
	if err != nil {
		if core.IsNotFoundErr(err) {
			return nil, "", cli.GeneralError(fmt.Sprintf("calculation not found: %s", loc), err)
		}
		return nil, "", cli.GeneralError("reading "+loc.String(), err)
	}
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", cli.GeneralError("reading "+loc.String(), err)
	}
	return data, loc.String(), nil
}

// writeCalculation stores calc at raw, or prints it to w when raw is empty or "-".
// asYAML applies to printed output; stored files pick the format from the key.
func writeCalculation(ctx context.Context, w io.Writer, raw string, calc snapshot.Calculation, asYAML bool) error {
	if raw == "" || raw == stdinPath {
		marshal := snapshot.Marshal
		if asYAML {
			marshal = snapshot.MarshalYAML
		}
		data, err := marshal(calc)
		if err != nil {
			return cli.GeneralError("encoding calculation", err)
		}
		_, err = w.Write(data)
		return err
	}

	loc, err := blob.ParseLocation(raw)
	if err != nil {
		return cli.ConfigError("calculation location", err)
	}
	st, err := blob.OpenLocation(ctx, loc, blobOptions())
	if err != nil {
		return cli.StoreConnectError("opening "+loc.String(), err)
	}
	info, err := blob.WriteCalculation(ctx, st, loc.Key, calc)
	if err != nil {
		return cli.GeneralError("writing "+loc.String(), err)
	}
	log.Debug("calculation written", "location", loc.String(), "bytes", info.Size)
	return nil
}

// openStore connects to the configured database. A non-empty dsn overrides
// the configuration.
func openStore(ctx context.Context, dsn string) (*store.Store, error) {
	if dsn == "" {
		var err error
		if dsn, err = cfg.DSN(); err != nil {
			return nil, cli.ConfigError("database configuration", err)
		}
	}
	if dsn == "" {
		return nil, cli.ConfigError("database URL is required (use --db or set in config)", nil)
	}
	st, err := store.Open(ctx, cfg.Database.Driver, dsn, store.WithLogger(log))
	if err != nil {
		return nil, cli.StoreConnectError("connecting to database", err)
	}
	return st, nil
}

// storeError classifies a store failure for the exit code.
func storeError(msg string, err error) error {
	if store.IsNotMigratedErr(err) {
		return cli.ConfigError(msg, err)
	}
	return cli.GeneralError(msg, err)
}

func resolveStrategy(flag string) (engine.Strategy, error) {
	s, err := engine.ParseStrategy(resolveString(flag, cfg.Compute.Strategy))
	if err != nil {
		return "", cli.ConfigError("compute strategy", err)
	}
	return s, nil
}
