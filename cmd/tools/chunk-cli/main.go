package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/annel0/blockverse/internal/codec"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/replication"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/block/implementations"
)

const timeFormat = "15:04:05"

func main() {
	var (
		command  = flag.String("cmd", "list", "Command: tail, list, show")
		natsURL  = flag.String("nats", "nats://localhost:4222", "NATS server URL (tail)")
		stream   = flag.String("stream", "BLOCKVERSE", "JetStream stream (tail)")
		sources  = flag.String("sources", "", "Source filter (comma-separated, tail)")
		limit    = flag.Int("limit", 100, "Maximum number of events (tail)")
		follow   = flag.Bool("follow", false, "Ignore limit and follow new events (tail)")
		dataPath = flag.String("data", "data", "Data directory of the server (list, show)")
		chunk    = flag.String("chunk", "0:0:0", "Chunk coordinates x:y:z (show)")
	)
	flag.Parse()

	var err error
	switch *command {
	case "tail":
		err = tailChunks(&TailOptions{
			URL:     *natsURL,
			Stream:  *stream,
			Sources: parseStringList(*sources),
			Limit:   *limit,
			Follow:  *follow,
		})
	case "list":
		err = listChunks(*dataPath)
	case "show":
		err = showChunk(*dataPath, *chunk)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, list, show")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

type TailOptions struct {
	URL     string
	Stream  string
	Sources []string
	Limit   int
	Follow  bool
}

// tailChunks выводит рассылаемые чанки в реальном времени
func tailChunks(opts *TailOptions) error {
	fmt.Printf("🎬 Tailing chunk events (limit: %d, follow: %v)\n", opts.Limit, opts.Follow)

	bus, err := eventbus.NewJetStreamBus(opts.URL, opts.Stream, 0)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	z := codec.MustZstd()
	events := make(chan *eventbus.Envelope, 64)
	sub, err := bus.Subscribe(ctx, eventbus.Filter{
		Types:   []string{replication.EventChunkData},
		Sources: opts.Sources,
	}, func(ctx context.Context, ev *eventbus.Envelope) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	count := 0
	for opts.Follow || count < opts.Limit {
		select {
		case <-ctx.Done():
			fmt.Printf("\n📊 Total events: %d\n", count)
			return nil
		case ev := <-events:
			printEvent(ev, z)
			count++
		}
	}
	fmt.Printf("\n📊 Total events: %d\n", count)
	return nil
}

// printEvent выводит конверт чанка в читаемом формате
func printEvent(ev *eventbus.Envelope, z *codec.Zstd) {
	fmt.Printf("[%s] %s [%s] %s %dB %s\n",
		ev.Timestamp.Local().Format(timeFormat),
		ev.Source,
		ev.EventType,
		ev.Metadata[replication.MetaChunk],
		len(ev.Payload),
		ev.Metadata[replication.MetaEncoding])

	pos, data, err := replication.DecodeChunkEnvelope(ev, z)
	if err != nil {
		fmt.Printf("  ❌ %v\n", err)
		return
	}
	c := world.NewChunk(pos)
	if !c.Deserialize(data) {
		fmt.Println("  ❌ broken chunk bytes")
		return
	}
	fmt.Printf("  Non-air: %d\n", c.CountNonAir())
}

func openStore(dataPath string) (*storage.BadgerStore, error) {
	if _, err := os.Stat(dataPath); err != nil {
		return nil, err
	}
	return storage.NewBadgerStore(dataPath, nil)
}

// listChunks выводит сохранённые чанки
func listChunks(dataPath string) error {
	store, err := openStore(dataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	positions, err := store.Positions()
	if err != nil {
		return err
	}
	world.SortPositions(positions)

	fmt.Printf("📋 Stored chunks: %d\n", len(positions))
	for _, pos := range positions {
		fmt.Printf("  %s\n", pos.Key())
	}
	return nil
}

// showChunk выводит состав сохранённого чанка
func showChunk(dataPath, key string) error {
	pos, err := vec.ParseKey(key)
	if err != nil {
		return err
	}

	store, err := openStore(dataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, ok, err := store.Load(ctx, pos)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("chunk %s is not stored", key)
	}

	c := world.NewChunk(pos)
	if !c.Deserialize(data) {
		return fmt.Errorf("chunk %s: broken bytes", key)
	}

	fmt.Printf("🧱 Chunk %s (%d bytes on disk, non-air %d)\n", key, len(data), c.CountNonAir())
	for _, line := range histogram(c.Snapshot(), implementations.NewDefaultRegistry()) {
		fmt.Printf("  %s\n", line)
	}
	return nil
}

// histogram считает блоки по именам, самые частые первыми
func histogram(s *world.Snapshot, reg *block.Registry) []string {
	counts := make(map[block.BlockID]int)
	for _, b := range s.Blocks {
		counts[b.ID]++
	}

	ids := make([]block.BlockID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		name := fmt.Sprintf("#%d", id)
		if d, ok := reg.Get(id); ok {
			name = d.Name
		}
		out = append(out, fmt.Sprintf("%s: %d", name, counts[id]))
	}
	return out
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
