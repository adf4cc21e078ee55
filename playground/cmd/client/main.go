package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	ripple "github.com/Tap30/ripple-events-go"
	"github.com/Tap30/ripple-events-go/adapters"
	"github.com/Tap30/ripple-events-go/event"
)

var client *ripple.Client
var scanner *bufio.Scanner

func main() {
	scanner = bufio.NewScanner(os.Stdin)

	var err error
	client, err = ripple.NewClient(ripple.ClientConfig{
		APIKey:         "test-api-key",
		Endpoint:       "http://localhost:3000/events",
		FlushInterval:  5 * time.Second,
		MaxBatchSize:   5,
		MaxRetries:     3,
		HTTPAdapter:    adapters.NewNetHTTPAdapterWithTimeout(5 * time.Second),
		StorageAdapter: adapters.NewFileStorageAdapter("playground_events.json"),
		LoggerAdapter:  adapters.NewPrintLoggerAdapter(adapters.LogLevelDebug),
	})
	if err != nil {
		fmt.Printf("❌ Failed to create client: %v\n", err)
		return
	}
	if err := client.Init(); err != nil {
		fmt.Printf("❌ Failed to initialize client: %v\n", err)
		return
	}

	fmt.Println("🎯 Ripple Deep Link Simulator")
	fmt.Println("Connected to: http://localhost:3000/events")
	fmt.Println()

	for {
		showMenu()
		switch readInput("Choose an option: ") {
		case "1":
			openDeepLink()
		case "2":
			installReferrer()
		case "3":
			trackCustom()
		case "4":
			client.Flush()
			fmt.Println("✅ Flushed")
		case "5":
			fmt.Println("👋 Goodbye!")
			// Persist events to storage without flushing to server
			client.DisposeWithoutFlush()
			return
		default:
			fmt.Println("❌ Invalid option. Please try again.")
		}
		fmt.Println()
	}
}

func showMenu() {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("1. Open Deep Link")
	fmt.Println("2. Receive Install Referrer")
	fmt.Println("3. Track Custom Self-Describing Event")
	fmt.Println("4. Flush Events")
	fmt.Println("5. Exit")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

func readInput(prompt string) string {
	fmt.Print(prompt)
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}

func openDeepLink() {
	intent := &event.NavigationIntent{}
	if raw := readInput("Deep link URL (empty for none): "); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			fmt.Printf("❌ Invalid URL: %v\n", err)
			return
		}
		intent.URI = u
	}
	if raw := readInput("Referrer URL (empty for none): "); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			fmt.Printf("❌ Invalid URL: %v\n", err)
			return
		}
		intent.ExtraData = event.MapBundle{event.ExtraReferrer: u}
	}

	ev := event.DeepLinkFromIntent(intent)
	if ev == nil {
		fmt.Println("ℹ️  No deep link in intent, nothing tracked")
		return
	}
	track(ev)
}

func installReferrer() {
	record := &event.InstallReferrerRecord{}
	if raw := readInput("Install referrer (empty for none): "); raw != "" {
		record.Referrer = &raw
	}

	ev := event.DeepLinkFromReferrerDetails(record)
	if ev == nil {
		fmt.Println("ℹ️  No install referrer, nothing tracked")
		return
	}
	track(ev)
}

func trackCustom() {
	schema := readInput("Schema (iglu:vendor/name/jsonschema/1-0-0): ")
	key := readInput("Field name: ")
	value := readInput("Field value: ")
	data := map[string]any{}
	if key != "" {
		data[key] = value
	}
	track(event.NewCustom(schema, data))
}

func track(ev event.SelfDescribing) {
	if err := client.TrackSelfDescribing(ev); err != nil {
		fmt.Printf("❌ Error tracking event: %v\n", err)
		return
	}
	fmt.Printf("✅ Tracked %s %v\n", ev.Schema(), ev.DataPayload())
}
