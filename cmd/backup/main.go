// Package main contains a small operational tool that snapshots the bot's
// Redis data to compressed archives and restores them.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/redis/go-redis/v9"

	"github.com/edgard/supportbot/internal/config"
	"github.com/edgard/supportbot/internal/logger"
	"github.com/edgard/supportbot/internal/storage"
)

// snapshotPatterns lists the key patterns included in a backup. Session state
// is ephemeral and deliberately left out.
var snapshotPatterns = []string{
	"users",
	"users_index_*",
	"settings",
	"faq:*",
	"migrations:applied",
}

// Snapshot is the on-disk backup document.
type Snapshot struct {
	Version   int                          `json:"version"`
	CreatedAt time.Time                    `json:"created_at"`
	Hashes    map[string]map[string]string `json:"hashes,omitempty"`
	Lists     map[string][]string          `json:"lists,omitempty"`
	Sets      map[string][]string          `json:"sets,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

func run(ctx context.Context) int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: backup <backup|restore> [flags]")
		return 2
	}

	switch os.Args[1] {
	case "backup":
		fs := flag.NewFlagSet("backup", flag.ExitOnError)
		configPath := fs.String("config", "./config.yaml", "Path to configuration file")
		outDir := fs.String("out", "./backups", "Directory to write archives to")
		keep := fs.Int("keep", 7, "Number of archives to keep, 0 keeps all")
		_ = fs.Parse(os.Args[2:])

		log, rdb, ok := setup(ctx, *configPath)
		if !ok {
			return 1
		}
		defer storage.Close(rdb, log)
		if err := runBackup(ctx, log, rdb, *outDir, *keep); err != nil {
			log.Error("Backup failed", "error", err)
			return 1
		}
		return 0

	case "restore":
		fs := flag.NewFlagSet("restore", flag.ExitOnError)
		configPath := fs.String("config", "./config.yaml", "Path to configuration file")
		in := fs.String("in", "", "Archive to restore from")
		force := fs.Bool("force", false, "Overwrite existing data")
		_ = fs.Parse(os.Args[2:])

		if *in == "" {
			fmt.Fprintln(os.Stderr, "restore: -in is required")
			return 2
		}
		log, rdb, ok := setup(ctx, *configPath)
		if !ok {
			return 1
		}
		defer storage.Close(rdb, log)
		if err := runRestore(ctx, log, rdb, *in, *force); err != nil {
			log.Error("Restore failed", "error", err)
			return 1
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		return 2
	}
}

func setup(ctx context.Context, configPath string) (*slog.Logger, *redis.Client, bool) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return nil, nil, false
	}
	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)

	rdb, err := storage.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("Failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
		return nil, nil, false
	}
	return log, rdb, true
}

func runBackup(ctx context.Context, log *slog.Logger, rdb *redis.Client, outDir string, keep int) error {
	snapshot, err := collect(ctx, rdb)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	name := fmt.Sprintf("supportbot-%s.json.gz", snapshot.CreatedAt.Format("20060102-150405"))
	path := filepath.Join(outDir, name)

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(raw); err != nil {
		f.Close()
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}

	sum := sha256.Sum256(raw)
	if err := os.WriteFile(path+".sha256", []byte(hex.EncodeToString(sum[:])+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write checksum: %w", err)
	}

	log.Info("Backup written", "path", path,
		"hashes", len(snapshot.Hashes), "lists", len(snapshot.Lists), "sets", len(snapshot.Sets))

	if keep > 0 {
		if err := prune(log, outDir, keep); err != nil {
			return err
		}
	}
	return nil
}

func collect(ctx context.Context, rdb *redis.Client) (*Snapshot, error) {
	snapshot := &Snapshot{
		Version:   1,
		CreatedAt: time.Now().UTC(),
		Hashes:    map[string]map[string]string{},
		Lists:     map[string][]string{},
		Sets:      map[string][]string{},
	}

	for _, pattern := range snapshotPatterns {
		iter := rdb.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			keyType, err := rdb.Type(ctx, key).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to inspect key %q: %w", key, err)
			}
			switch keyType {
			case "hash":
				fields, err := rdb.HGetAll(ctx, key).Result()
				if err != nil {
					return nil, fmt.Errorf("failed to read hash %q: %w", key, err)
				}
				snapshot.Hashes[key] = fields
			case "list":
				values, err := rdb.LRange(ctx, key, 0, -1).Result()
				if err != nil {
					return nil, fmt.Errorf("failed to read list %q: %w", key, err)
				}
				snapshot.Lists[key] = values
			case "set":
				members, err := rdb.SMembers(ctx, key).Result()
				if err != nil {
					return nil, fmt.Errorf("failed to read set %q: %w", key, err)
				}
				snapshot.Sets[key] = members
			}
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan pattern %q: %w", pattern, err)
		}
	}
	return snapshot, nil
}

func runRestore(ctx context.Context, log *slog.Logger, rdb *redis.Client, path string, force bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	defer zr.Close()

	var snapshot Snapshot
	if err := json.NewDecoder(zr).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if !force {
		existing, err := rdb.Exists(ctx, storage.UsersKey).Result()
		if err != nil {
			return fmt.Errorf("failed to check existing data: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("target already holds user data, re-run with -force to overwrite")
		}
	}

	for key, fields := range snapshot.Hashes {
		if err := rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to clear %q: %w", key, err)
		}
		if len(fields) == 0 {
			continue
		}
		pairs := make([]any, 0, len(fields)*2)
		for field, value := range fields {
			pairs = append(pairs, field, value)
		}
		if err := rdb.HSet(ctx, key, pairs...).Err(); err != nil {
			return fmt.Errorf("failed to restore hash %q: %w", key, err)
		}
	}
	for key, values := range snapshot.Lists {
		if err := rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to clear %q: %w", key, err)
		}
		for _, value := range values {
			if err := rdb.RPush(ctx, key, value).Err(); err != nil {
				return fmt.Errorf("failed to restore list %q: %w", key, err)
			}
		}
	}
	for key, members := range snapshot.Sets {
		if err := rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to clear %q: %w", key, err)
		}
		for _, member := range members {
			if err := rdb.SAdd(ctx, key, member).Err(); err != nil {
				return fmt.Errorf("failed to restore set %q: %w", key, err)
			}
		}
	}

	log.Info("Restore complete", "path", path, "snapshot_created_at", snapshot.CreatedAt)
	return nil
}

// prune removes the oldest archives beyond the keep count.
func prune(log *slog.Logger, dir string, keep int) error {
	entries, err := filepath.Glob(filepath.Join(dir, "supportbot-*.json.gz"))
	if err != nil {
		return fmt.Errorf("failed to list archives: %w", err)
	}
	if len(entries) <= keep {
		return nil
	}
	sort.Strings(entries)
	for _, stale := range entries[:len(entries)-keep] {
		if err := os.Remove(stale); err != nil {
			return fmt.Errorf("failed to remove %q: %w", stale, err)
		}
		_ = os.Remove(stale + ".sha256")
		log.Info("Pruned old archive", "path", stale)
	}
	return nil
}
