package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

func main() {
	baseURL := flag.String("server", envOr("DAYLIVE_SERVER_URL", "http://127.0.0.1:8080"), "URL du serveur (ex: http://127.0.0.1:8080)")
	timeout := flag.Duration("timeout", 10*time.Second, "Timeout HTTP")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	client := &http.Client{Timeout: *timeout}

	switch args[0] {
	case "health":
		run(client, *baseURL+"/api/v1/health")
	case "version":
		run(client, *baseURL+"/api/v1/version")
	case "settings":
		run(client, *baseURL+"/api/v1/settings")
	case "progress":
		run(client, *baseURL+"/api/v1/progress")
	case "plan":
		if len(args) < 2 {
			usage()
		}
		run(client, *baseURL+"/api/v1/subscriptions/"+url.PathEscape(args[1])+"/plan")
	default:
		fmt.Fprintln(os.Stderr, "Commande inconnue:", args[0])
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: daylive [health|version|settings|progress|plan <subscriptionId>]")
	os.Exit(2)
}

func run(client *http.Client, endpoint string) {
	resp, err := client.Get(endpoint)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	var pretty any
	if err := json.Unmarshal(b, &pretty); err == nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(pretty)
		if resp.StatusCode >= 400 {
			os.Exit(1)
		}
		return
	}

	os.Stdout.Write(b)
	os.Stdout.Write([]byte("\n"))
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
