package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tendant/device-trust/pkg/handshake"
	"github.com/tendant/device-trust/pkg/keymanager"
	"github.com/tendant/device-trust/pkg/securestore"
)

func main() {
	// Parse command line flags
	dataDir := flag.String("data-dir", ".device-trust", "Directory holding the secure store")
	secret := flag.String("secret", "very-secure-store-secret", "Secret protecting the key pair at rest")
	keyBits := flag.Int("bits", keymanager.DefaultKeyBits, "RSA key size in bits")
	outputFormat := flag.String("format", "fingerprint", "Output format: fingerprint, public, or full")
	rotate := flag.Bool("rotate", false, "Discard any existing key pair and generate a new one")
	flag.Parse()

	repo, err := securestore.NewFileEntryRepository(*dataDir, securestore.DefaultEntryRepositoryOptions())
	if err != nil {
		slog.Error("Failed to open secure store", "dir", *dataDir, "err", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to open secure store: %v\n", err)
		os.Exit(1)
	}

	store := securestore.New(repo)
	defer store.Close()
	handshake.ConfigureStore(store, *secret)

	keys := keymanager.NewService(store, keymanager.WithKeyBits(*keyBits))

	ctx := context.Background()
	if *rotate {
		keys.Clear(ctx)
	}

	pair, err := keys.EnsureKeyPair(ctx)
	if err != nil {
		slog.Error("Failed to ensure key pair", "err", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to ensure key pair: %v\n", err)
		os.Exit(1)
	}

	fingerprint, err := pair.Fingerprint()
	if err != nil {
		slog.Error("Failed to fingerprint key pair", "err", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to fingerprint key pair: %v\n", err)
		os.Exit(1)
	}

	// Output based on format
	switch *outputFormat {
	case "fingerprint":
		fmt.Println(fingerprint)
	case "public":
		fmt.Print(pair.PublicKeyPEM)
	case "full":
		fmt.Printf("=== Device Key Pair ===\n")
		fmt.Printf("Fingerprint: %s\n\n", fingerprint)
		fmt.Printf("%s", pair.PublicKeyPEM)
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}
