// Command viewer opens the store read-only and prints its content as
// tables. Handy to inspect a live instance: the lock guard bypass lets
// it attach while the server holds the Badger lock.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	Limit          int    `envconfig:"VIEWER_LIMIT" default:"20"`
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	color.Green.Println("== Users ==")
	printTable(db, "user:", config.Limit,
		[]string{"ID", "Username", "Display name", "Created"},
		func(rec map[string]any) []string {
			return []string{
				short(str(rec["id"])),
				str(rec["userName"]),
				str(rec["displayName"]),
				str(rec["createdAt"]),
			}
		})

	color.Green.Println("\n== Rooms ==")
	printTable(db, "room:", config.Limit,
		[]string{"ID", "Name", "Public", "Members", "Owner"},
		func(rec map[string]any) []string {
			members, _ := rec["memberIds"].([]any)
			return []string{
				short(str(rec["id"])),
				str(rec["name"]),
				fmt.Sprintf("%v", rec["isPublic"]),
				fmt.Sprintf("%d", len(members)),
				short(str(rec["ownerId"])),
			}
		})

	color.Green.Println("\n== Messages ==")
	printMessages(db, config.Limit)
}

func printTable(db *badger.DB, prefix string, limit int, header []string, row func(map[string]any) []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)

	count := 0
	_ = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)) && count < limit; it.Next() {
			_ = it.Item().Value(func(val []byte) error {
				var rec map[string]any
				if err := json.Unmarshal(val, &rec); err == nil {
					table.Append(row(rec))
					count++
				}
				return nil
			})
		}
		return nil
	})
	table.Render()
}

// printMessages walks the global recent index backwards and
// dereferences each entry into its room log record.
func printMessages(db *badger.DB, limit int) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Room", "User", "Type", "Content"})

	count := 0
	_ = db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte("recent:")
		seek := append(append([]byte(nil), prefix...), []byte("9999999999999999999")...)
		for it.Seek(seek); it.ValidForPrefix(prefix) && count < limit; it.Next() {
			var primary []byte
			_ = it.Item().Value(func(val []byte) error {
				primary = append([]byte(nil), val...)
				return nil
			})
			item, err := txn.Get(primary)
			if err != nil {
				continue
			}
			_ = item.Value(func(val []byte) error {
				var rec map[string]any
				if err := json.Unmarshal(val, &rec); err == nil {
					table.Append([]string{
						str(rec["timestamp"]),
						short(str(rec["roomId"])),
						str(rec["userName"]),
						str(rec["type"]),
						truncate(str(rec["content"]), 50),
					})
					count++
				}
				return nil
			})
		}
		return nil
	})
	table.Render()

	if count == 0 {
		color.Yellow.Println("no messages yet")
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func short(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "…"
}
