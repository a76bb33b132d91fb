// Command vless2clash converts a base64 VLESS subscription into a Clash
// proxy-provider YAML file.
//
// Usage:
//
//	vless2clash --url <subscription-url> <output-file>
//	vless2clash --file <raw-file> <output-file>
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/susaninz/geosite-manager/subconv"
	"gopkg.in/yaml.v3"
)

func main() {
	var subscriptionURL string
	var inputFile string
	flag.StringVar(&subscriptionURL, "url", "", "subscription URL to download")
	flag.StringVar(&inputFile, "file", "", "local file with raw base64 subscription data")
	flag.Parse()
	if flag.NArg() != 1 || (subscriptionURL == "") == (inputFile == "") {
		fmt.Fprintln(os.Stderr, "usage: vless2clash (--url <url> | --file <file>) <output-file>")
		os.Exit(2)
	}
	outputFile := flag.Arg(0)

	raw, err := readInput(subscriptionURL, inputFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read subscription:", err)
		os.Exit(1)
	}
	provider, err := subconv.Convert(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, "convert subscription:", err)
		os.Exit(1)
	}
	encoded, err := yaml.Marshal(provider)
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal provider:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outputFile, encoded, 0644); err != nil {
		fmt.Fprintln(os.Stderr, "write output:", err)
		os.Exit(1)
	}
	fmt.Printf("Converted %d proxies → %s\n", len(provider.Proxies), outputFile)
	for _, proxy := range provider.Proxies {
		fmt.Printf("  - %s (%s:%d)\n", proxy.Name, proxy.Server, proxy.Port)
	}
}

func readInput(subscriptionURL string, inputFile string) (string, error) {
	if subscriptionURL != "" {
		client := http.Client{Timeout: 30 * time.Second}
		req, err := http.NewRequest(http.MethodGet, subscriptionURL, nil)
		if err != nil {
			return "", err
		}
		// Some providers serve a different format without this user agent.
		req.Header.Set("User-Agent", "clash.meta")
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("unexpected status: %s", resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}
	body, err := os.ReadFile(inputFile)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
