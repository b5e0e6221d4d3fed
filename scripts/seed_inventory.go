package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"toolcrib/internal/config"
	"toolcrib/internal/models"
	"toolcrib/internal/store"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

type SeedFile struct {
	Items []models.InventoryItem `yaml:"items"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		itemsPath  = flag.String("items", "configs/inventory.yaml", "path to inventory seed yaml")
		configPath = flag.String("config", "configs/config.yaml", "path to config.yaml")
		dryRun     = flag.Bool("dry-run", false, "validate the seed file without writing")
	)
	flag.Parse()

	data, err := os.ReadFile(*itemsPath)
	if err != nil {
		return fmt.Errorf("read items: %w", err)
	}
	var seed SeedFile
	if err = yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse items: %w", err)
	}
	if len(seed.Items) == 0 {
		return fmt.Errorf("no items in yaml")
	}

	for i := range seed.Items {
		it := &seed.Items[i]
		it.Item = strings.TrimSpace(it.Item)
		it.Location = models.NormalizeLocation(it.Location)
		if it.Item == "" || !models.ValidLocation(it.Location) {
			return fmt.Errorf("item %d (%q at %q): name and a location like 105A are required", i+1, it.Item, it.Location)
		}
		if it.Quantity < 0 {
			it.Quantity = 0
		}
	}
	if *dryRun {
		fmt.Printf("ok: %d items\n", len(seed.Items))
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, _, err := store.Open(cfg, &logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	existing, err := st.ListInventory(ctx)
	if err != nil {
		return fmt.Errorf("list inventory: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, it := range existing {
		seen[seedKey(it.Location, it.Item)] = true
	}

	created, skipped := 0, 0
	for i := range seed.Items {
		it := seed.Items[i]
		if seen[seedKey(it.Location, it.Item)] {
			skipped++
			continue
		}
		it.ID = 0
		if err = st.CreateItem(ctx, &it); err != nil {
			return fmt.Errorf("create %s at %s: %w", it.Item, it.Location, err)
		}
		seen[seedKey(it.Location, it.Item)] = true
		created++
	}

	fmt.Printf("done: created=%d skipped=%d\n", created, skipped)
	return nil
}

func seedKey(location, item string) string {
	return location + "|" + strings.ToLower(item)
}
