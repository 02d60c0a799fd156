package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/procurement/internal/adapter/notify"
	"github.com/rl1809/procurement/internal/adapter/storage"
	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/core/service"
)

const (
	itemID        = "nitrile-gloves"
	totalRequests = 50
	maxLatency    = 200 * time.Millisecond
	searchTimeout = 5 * time.Second
)

// jitterSearcher answers every query with one offer named after the query,
// after a random delay, so responses arrive out of request order.
type jitterSearcher struct{}

func (jitterSearcher) Search(ctx context.Context, query string, hintWebsites []string) ([]domain.VendorOffer, error) {
	delay := time.Duration(rand.Int64N(int64(maxLatency)))
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []domain.VendorOffer{{
		ID:           "offer-" + query,
		VendorName:   "Vendor " + query,
		ProductName:  "Nitrile Gloves",
		PricePerUnit: decimal.NewFromInt(int64(5 + rand.IntN(5))),
	}}, nil
}

func main() {
	ctx := context.Background()

	item, err := domain.NewCatalogItem(itemID, "Nitrile Gloves", "MED-GLV-100", "PPE",
		decimal.NewFromInt(10), domain.StockCounts{}, "Medline", nil)
	if err != nil {
		log.Fatalf("failed to build item: %v", err)
	}

	dispatcher := notify.NewDispatcher(notify.DefaultQueueSize, notify.LogSink{})
	dispatcher.Start(1)
	defer dispatcher.Close()

	orders := service.NewOrderService(domain.NewOrder(decimal.NewFromInt(1000)), storage.NewMemoryCatalog([]domain.CatalogItem{item}), dispatcher)
	discovery := service.NewDiscoveryService(orders, jitterSearcher{}, dispatcher, searchTimeout)
	defer discovery.Close()

	if _, err := orders.AddItem(ctx, itemID); err != nil {
		log.Fatalf("failed to add item: %v", err)
	}

	// Fire overlapping searches back to back
	pending := make([]*service.PendingSearch, 0, totalRequests)
	start := time.Now()
	for i := 1; i <= totalRequests; i++ {
		p, err := discovery.Search(itemID, service.SearchCriteria{Query: fmt.Sprintf("probe-%d", i)})
		if err != nil {
			log.Fatalf("search %d failed to start: %v", i, err)
		}
		pending = append(pending, p)
	}

	counts := make(map[service.SearchOutcome]int)
	var (
		mu     sync.Mutex
		winner uint64
	)
	waitCtx, cancel := context.WithTimeout(ctx, 2*searchTimeout)
	defer cancel()
	g, gctx := errgroup.WithContext(waitCtx)
	for _, p := range pending {
		g.Go(func() error {
			res, err := p.Wait(gctx)
			if res.Outcome == "" {
				return fmt.Errorf("search seq %d never settled: %w", p.Seq, err)
			}
			mu.Lock()
			counts[res.Outcome]++
			if res.Outcome == service.OutcomeMerged {
				winner = res.Seq
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("waiting for searches: %v", err)
	}
	elapsed := time.Since(start)

	line, err := orders.Line(itemID)
	if err != nil {
		log.Fatalf("failed to read line: %v", err)
	}
	var merged []string
	for _, o := range line.Offers {
		if strings.HasPrefix(o.ID, "offer-") {
			merged = append(merged, o.ID)
		}
	}

	last := pending[len(pending)-1]
	want := fmt.Sprintf("offer-probe-%d", totalRequests)

	fmt.Println("======== DISCOVERY STRESS RESULTS ========")
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Merged:           %d\n", counts[service.OutcomeMerged])
	fmt.Printf("Discarded:        %d\n", counts[service.OutcomeDiscarded])
	fmt.Printf("Failed:           %d\n", counts[service.OutcomeFailed])
	fmt.Printf("Cancelled:        %d\n", counts[service.OutcomeCancelled])
	fmt.Printf("Offers On Line:   %v\n", merged)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if counts[service.OutcomeMerged] == 1 && winner == last.Seq {
		fmt.Printf("PASS: only the last request (seq %d) merged\n", last.Seq)
	} else {
		fmt.Printf("FAIL: expected only seq %d to merge, got %d merged (winner seq %d)\n",
			last.Seq, counts[service.OutcomeMerged], winner)
	}

	if len(merged) == 1 && merged[0] == want {
		fmt.Printf("PASS: line carries only %s\n", want)
	} else {
		fmt.Printf("FAIL: expected only %s on the line, got %v\n", want, merged)
	}
}
