// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Command slsdemo exercises a bbolt-backed securelocalstore.Store from the
// command line: set, get, set-master, remove-master, rotate-master,
// lock, unlock, rotate-keys, export, import, clear, stats. It is a
// standard-library flag CLI, not a cobra tree — the teacher's own
// cmd/client and cmd/server don't use a CLI framework either, and this
// demo has no subcommand depth that would justify one.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	bolt "go.etcd.io/bbolt"

	securelocalstore "github.com/sls-go/securelocalstore"
	"github.com/sls-go/securelocalstore/internal/config"
	"github.com/sls-go/securelocalstore/internal/devicekey"
	"github.com/sls-go/securelocalstore/internal/kvstore"
	"github.com/sls-go/securelocalstore/internal/slog"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "slsdemo: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("slsdemo", flag.ContinueOnError)
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.BoltPath == "" {
		return fmt.Errorf("bolt path must not be empty")
	}
	if cfg.StorageKey == "" {
		return fmt.Errorf("storage key must not be empty")
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage()
		return fmt.Errorf("missing command")
	}
	cmd, cmdArgs := rest[0], rest[1:]

	logger := slog.New("slsdemo")
	db, err := bolt.Open(cfg.BoltPath, 0o600, nil)
	if err != nil {
		return fmt.Errorf("open bolt database %q: %w", cfg.BoltPath, err)
	}
	defer db.Close()

	devicePersist, err := devicekey.OpenBoltPersistent(cfg.BoltPath + ".keys")
	if err != nil {
		return fmt.Errorf("open device key database: %w", err)
	}
	defer devicePersist.Close()
	deviceKeys := devicekey.NewStore(devicePersist, logger.GetChildLogger())

	kv, err := kvstore.OpenBoltKV(db, cfg.StorageKey, logger.GetChildLogger())
	if err != nil {
		return fmt.Errorf("open kv store: %w", err)
	}

	store := securelocalstore.New(kv, deviceKeys, securelocalstore.Config{
		StorageKey:    cfg.StorageKey,
		DBName:        cfg.DBName,
		StoreName:     cfg.StoreName,
		KeyID:         cfg.KeyID,
		DefaultRounds: cfg.DefaultRounds,
		Logger:        logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	if err := store.WaitReady(ctx); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}

	return dispatch(ctx, store, cmd, cmdArgs)
}

func dispatch(ctx context.Context, store *securelocalstore.Store, cmd string, args []string) error {
	switch cmd {
	case "stats":
		return cmdStats(ctx, store)
	case "get":
		return cmdGet(ctx, store)
	case "set":
		return cmdSet(ctx, store, args)
	case "set-master":
		return cmdSetMaster(ctx, store, args)
	case "remove-master":
		return store.RemoveMasterPassword(ctx)
	case "rotate-master":
		return cmdRotateMaster(ctx, store, args)
	case "lock":
		store.Lock()
		return nil
	case "unlock":
		return cmdUnlock(ctx, store, args)
	case "rotate-keys":
		return store.RotateKeys(ctx)
	case "export":
		return cmdExport(ctx, store, args)
	case "import":
		return cmdImport(ctx, store, args)
	case "clear":
		return store.Clear(ctx)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdStats(ctx context.Context, store *securelocalstore.Store) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func cmdGet(ctx context.Context, store *securelocalstore.Store) error {
	view, err := securelocalstore.GetData[map[string]any](ctx, store)
	if err != nil {
		return err
	}
	defer view.Clear()
	val, err := view.Get()
	if err != nil {
		return err
	}
	return printJSON(val)
}

func cmdSet(ctx context.Context, store *securelocalstore.Store, args []string) error {
	raw, err := readPayload(args)
	if err != nil {
		return err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("payload is not a JSON object: %w", err)
	}
	return store.SetData(ctx, payload)
}

func cmdSetMaster(ctx context.Context, store *securelocalstore.Store, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: slsdemo set-master <password>")
	}
	return store.SetMasterPassword(ctx, args[0])
}

func cmdRotateMaster(ctx context.Context, store *securelocalstore.Store, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: slsdemo rotate-master <old-password> <new-password>")
	}
	return store.RotateMasterPassword(ctx, args[0], args[1])
}

func cmdUnlock(ctx context.Context, store *securelocalstore.Store, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: slsdemo unlock <password>")
	}
	return store.Unlock(ctx, args[0])
}

func cmdExport(ctx context.Context, store *securelocalstore.Store, args []string) error {
	var customPassword *string
	if len(args) == 1 {
		customPassword = &args[0]
	}
	bundle, err := store.ExportData(ctx, customPassword)
	if err != nil {
		return err
	}
	fmt.Println(bundle)
	return nil
}

func cmdImport(ctx context.Context, store *securelocalstore.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: slsdemo import <file|-> [password]")
	}
	raw, err := readFileOrStdin(args[0])
	if err != nil {
		return err
	}
	var password *string
	if len(args) == 2 {
		password = &args[1]
	}
	class, err := store.ImportData(ctx, string(raw), password)
	if err != nil {
		return err
	}
	fmt.Println(class)
	return nil
}

func readPayload(args []string) ([]byte, error) {
	if len(args) == 1 {
		return []byte(args[0]), nil
	}
	return readFileOrStdin("-")
}

func readFileOrStdin(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(bufio.NewReader(os.Stdin))
	}
	return os.ReadFile(path)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: slsdemo [flags] <command> [args]

commands:
  stats                          print version/mode/lock diagnostics
  get                             print the decrypted payload as JSON
  set <json|->                    set the payload (from arg or stdin)
  set-master <password>           protect the store with a master password
  remove-master                   revert to device-bound protection
  rotate-master <old> <new>       change the master password
  lock                            wipe the in-RAM key, requiring unlock
  unlock <password>                unlock a locked store
  rotate-keys                     rotate the device KEK (device mode only)
  export [customPassword]         print a portable export bundle
  import <file|-> [password]      ingest a bundle, overwriting the store
  clear                           destroy the persisted bundle and reset`)
}
