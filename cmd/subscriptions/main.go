// Command subscriptions manages which Telegram chats receive offers for
// which stores. Chat routing lives in the same SQLite database the bot
// uses, so edits here take effect on the next dispatch cycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"freegames_bot/internal/model"
	"freegames_bot/internal/storage"
)

func main() {
	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/freegames.db"), "path to sqlite database")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	store, err := storage.NewSQLite(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	cmd := args[0]
	switch cmd {
	case "add":
		chatID, tag := parseTarget(args[1:])
		err = store.AddSubscription(ctx, model.Subscription{
			ChatID:    chatID,
			Store:     tag,
			CreatedAt: time.Now().UTC(),
		})
	case "remove":
		chatID, tag := parseTarget(args[1:])
		err = store.RemoveSubscription(ctx, chatID, tag)
	case "list":
		if len(args) != 2 {
			usage()
			os.Exit(1)
		}
		chatID := parseChatID(args[1])
		var subs []model.Subscription
		subs, err = store.ListSubscriptions(ctx, chatID)
		for _, sub := range subs {
			fmt.Printf("%d\t%s\t%s\n", sub.ChatID, sub.Store, sub.CreatedAt.Format("2006-01-02 15:04"))
		}
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: subscriptions [-db path] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  add <chat-id> <store>     Subscribe a chat to a store (\"all\" for every store)")
	fmt.Fprintln(os.Stderr, "  remove <chat-id> <store>  Drop one of a chat's subscriptions")
	fmt.Fprintln(os.Stderr, "  list <chat-id>            Show a chat's subscriptions")
}

func parseTarget(args []string) (int64, model.StoreTag) {
	if len(args) != 2 {
		usage()
		os.Exit(1)
	}
	chatID := parseChatID(args[0])

	if args[1] == string(model.StoreAll) {
		return chatID, model.StoreAll
	}
	tag, ok := model.ParseStoreTag(args[1])
	if !ok {
		log.Fatalf("unknown store: %s", args[1])
	}
	return chatID, tag
}

func parseChatID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Fatalf("invalid chat id: %s", s)
	}
	return id
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
