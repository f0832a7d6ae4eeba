// cmd/tools/data-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"loyalty-agent/internal/datagen"
	"loyalty-agent/internal/models"
)

func main() {
	customers := flag.Int("customers", 1000, "Number of customer profiles")
	transactions := flag.Int("transactions", 10000, "Number of transaction records")
	seed := flag.Uint64("seed", 42, "Random seed")
	out := flag.String("out", "data", "Output directory")
	flag.Parse()

	if *customers < 0 || *transactions < 0 {
		fmt.Println("Error: customers and transactions must be non-negative.")
		os.Exit(1)
	}

	fmt.Printf("Generating %d customers and %d transactions...\n", *customers, *transactions)
	cs, txns := datagen.New(*seed, time.Now()).Generate(*customers, *transactions)

	if err := datagen.WriteFiles(*out, cs, txns); err != nil {
		fmt.Printf("Error writing data: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved %d customers and %d transactions to %s\n", len(cs), len(txns), *out)

	summarize(cs, txns)
}

func summarize(customers []models.Customer, transactions []models.Transaction) {
	if len(customers) == 0 {
		return
	}
	segments := map[string]int{}
	tiers := map[string]int{}
	for _, c := range customers {
		segments[c.Segment]++
		tiers[c.LoyaltyTier]++
	}

	fmt.Println("\nCustomer Distribution:")
	printShares(segments, len(customers))
	fmt.Println("\nLoyalty Tier Distribution:")
	printShares(tiers, len(customers))

	var completed int
	var revenue float64
	for _, t := range transactions {
		if t.IsCompleted() {
			completed++
			revenue += t.FinalAmount
		}
	}
	fmt.Println("\nTransaction Statistics:")
	fmt.Printf("  Total Transactions: %d\n", len(transactions))
	if completed > 0 {
		fmt.Printf("  Completed: %d (%.1f%%)\n", completed, float64(completed)/float64(len(transactions))*100)
		fmt.Printf("  Total Revenue: %.2f\n", revenue)
		fmt.Printf("  Average Transaction: %.2f\n", revenue/float64(completed))
	}
}

func printShares(counts map[string]int, total int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %d (%.1f%%)\n", k, counts[k], float64(counts[k])/float64(total)*100)
	}
}
