// Command mockxctl is a thin HTTP client for mockexchanged, grounded on
// original_source/scripts/cli.py's argparse subcommands (balance,
// ticker, order) but adapted from an in-process engine call to an
// x-api-key-authenticated HTTP request, since the engine now lives
// behind mockexchanged rather than being importable in-process.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	client := &client{
		baseURL: envOr("MOCKX_URL", "http://localhost:8000"),
		apiKey:  envOr("MOCKX_API_KEY", ""),
		http:    &http.Client{Timeout: 10 * time.Second},
	}

	switch os.Args[1] {
	case "balance":
		cmdBalance(client, os.Args[2:])
	case "ticker":
		cmdTicker(client, os.Args[2:])
	case "order":
		cmdOrder(client, os.Args[2:])
	case "cancel":
		cmdCancel(client, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: mockxctl <command> [args]

commands:
  balance [asset]
  ticker <symbol>
  order <symbol> <buy|sell> <amount> [--type market|limit] [--price P]
  cancel <oid>`)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func (c *client) do(method, path string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return out, fmt.Errorf("mockxctl: %s %s: status %d: %v", method, path, resp.StatusCode, out)
	}
	return out, nil
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func cmdBalance(c *client, args []string) {
	if len(args) == 1 {
		out, err := c.do(http.MethodGet, "/balance/"+args[0], nil)
		fail(err)
		printJSON(out)
		return
	}
	out, err := c.do(http.MethodGet, "/balance", nil)
	fail(err)
	printJSON(out)
}

func cmdTicker(c *client, args []string) {
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}
	out, err := c.do(http.MethodGet, "/tickers/"+args[0], nil)
	fail(err)
	printJSON(out)
}

func cmdOrder(c *client, args []string) {
	fs := flag.NewFlagSet("order", flag.ExitOnError)
	typ := fs.String("type", "market", "market or limit")
	price := fs.String("price", "", "limit price (required for --type limit)")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 3 {
		usage()
		os.Exit(1)
	}
	body := map[string]any{
		"symbol": rest[0],
		"side":   rest[1],
		"amount": rest[2],
		"type":   *typ,
	}
	if *price != "" {
		body["limit_price"] = *price
	}
	out, err := c.do(http.MethodPost, "/orders", body)
	fail(err)
	printJSON(out)
}

func cmdCancel(c *client, args []string) {
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}
	out, err := c.do(http.MethodPost, "/orders/"+args[0]+"/cancel", nil)
	fail(err)
	printJSON(out)
}

func fail(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
