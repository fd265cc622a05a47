// Command wideq-cli is a small debugging tool for the LG ThinQ cloud: log
// in, list the account's appliances and dump their raw snapshots.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ollo69/wideq-go/thinq"
)

func main() {
	country := flag.String("country", envOrDefault("WIDEQ_COUNTRY", "US"), "LG country code")
	language := flag.String("language", envOrDefault("WIDEQ_LANGUAGE", "en-US"), "LG language code")
	statePath := flag.String("state", envOrDefault("WIDEQ_STATE", "wideq_state.json"), "client state file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	store := &thinq.FileStore{Path: *statePath}

	var err error
	switch args[0] {
	case "login":
		err = login(ctx, store, *country, *language, args[1:])
	case "url":
		err = authURL(ctx, *country, *language)
	case "auth":
		err = authFromURL(ctx, store, *country, *language, args[1:])
	case "devices":
		err = listDevices(ctx, store)
	case "dump":
		err = dumpDevice(ctx, store, args[1:])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: wideq-cli [flags] <command>

commands:
  login <username> <password>  log in with an LG account and save the state
  url                          print the browser OAuth login URL
  auth <callback-url>          finish the browser OAuth flow and save the state
  devices                      list the account's appliances
  dump <device-id>             print one appliance's dashboard snapshot`)
	os.Exit(2)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func login(ctx context.Context, store thinq.TokenStore, country, language string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("login needs <username> <password>")
	}
	client, err := thinq.NewClientFromLogin(ctx, args[0], args[1], country, language, nil)
	if err != nil {
		return err
	}
	return saveClient(ctx, store, client)
}

func authURL(ctx context.Context, country, language string) error {
	transport := thinq.NewTransport(country, language, nil)
	gateway, err := thinq.DiscoverGateway(ctx, transport)
	if err != nil {
		return err
	}
	fmt.Println(gateway.OAuthURL("", ""))
	return nil
}

func authFromURL(ctx context.Context, store thinq.TokenStore, country, language string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("auth needs <callback-url>")
	}
	transport := thinq.NewTransport(country, language, nil)
	gateway, err := thinq.DiscoverGateway(ctx, transport)
	if err != nil {
		return err
	}
	auth, err := thinq.AuthFromURL(ctx, gateway, args[0])
	if err != nil {
		return err
	}
	client, err := thinq.Load(map[string]any{
		"gateway":  gateway.Dump(),
		"auth":     auth.Dump(),
		"country":  country,
		"language": language,
	}, nil)
	if err != nil {
		return err
	}
	return saveClient(ctx, store, client)
}

func loadClient(ctx context.Context, store thinq.TokenStore) (*thinq.Client, error) {
	blob, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading state (run login first): %w", err)
	}
	var state map[string]any
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	return thinq.Load(state, nil)
}

func saveClient(ctx context.Context, store thinq.TokenStore, client *thinq.Client) error {
	blob, err := json.MarshalIndent(client.Dump(), "", "  ")
	if err != nil {
		return err
	}
	return store.Save(ctx, blob)
}

func listDevices(ctx context.Context, store thinq.TokenStore) error {
	client, err := loadClient(ctx, store)
	if err != nil {
		return err
	}
	if err := client.RefreshDevices(ctx); err != nil {
		return err
	}
	for _, info := range client.Devices() {
		fmt.Printf("%s  %-20s  type=%d  platform=%s  online=%v\n",
			info.ID(), info.Name(), info.Type(), info.Platform(), info.IsOnline())
	}
	return saveClient(ctx, store, client)
}

func dumpDevice(ctx context.Context, store thinq.TokenStore, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("dump needs <device-id>")
	}
	client, err := loadClient(ctx, store)
	if err != nil {
		return err
	}
	if err := client.RefreshDevices(ctx); err != nil {
		return err
	}
	info := client.GetDevice(args[0])
	if info == nil {
		return thinq.ErrDeviceNotFound
	}
	blob, err := json.MarshalIndent(info.AsMap(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(blob))
	return nil
}
