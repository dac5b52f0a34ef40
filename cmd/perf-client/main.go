package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kkkkikiki/groupbuy/internal/apperr"
	"github.com/kkkkikiki/groupbuy/internal/service"
)

// PerfResult gathers aggregated metrics for the run.
// LatencySum and P95Latency are in nanoseconds.
type PerfResult struct {
	TotalRequests    int64
	SuccessCount     int64
	CapacityRejected int64
	ErrorCount       int64
	LatencySum       int64
	P95Latency       int64
}

const (
	defaultWorkers  = 50
	defaultRPS      = 700
	defaultDuration = 30 * time.Second
	requestTimeout  = 30 * time.Second
)

func main() {
	var (
		target     = flag.String("target", "http://localhost:8080", "server base URL")
		campaignID = flag.Int64("campaign", 0, "campaign id to reserve against")
		rps        = flag.Int("rps", defaultRPS, "target requests per second")
		workers    = flag.Int("workers", defaultWorkers, "concurrent workers")
		duration   = flag.Duration("duration", defaultDuration, "test duration")
	)
	flag.Parse()

	if *campaignID <= 0 {
		fmt.Fprintln(os.Stderr, "-campaign is required (see cmd/seed)")
		os.Exit(2)
	}

	transport := &http.Transport{
		MaxIdleConns:        *workers * 4,
		MaxIdleConnsPerHost: *workers * 4,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := &http.Client{Transport: transport, Timeout: requestTimeout}
	client := service.NewReservationServiceClient(httpClient, *target)

	fmt.Println("==========================================")
	fmt.Println("group-buy reserve load test")
	fmt.Println("==========================================")
	fmt.Printf("target     : %s\n", *target)
	fmt.Printf("campaign   : %d\n", *campaignID)
	fmt.Printf("rps        : %d\n", *rps)
	fmt.Printf("duration   : %v\n", *duration)
	fmt.Println("==========================================")

	burst := max(*rps / *workers, 1)
	limiter := rate.NewLimiter(rate.Limit(*rps), burst)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var (
		result  PerfResult
		wg      sync.WaitGroup
		numbers sync.Map // sequence numbers handed out
		dupes   atomic.Int64
	)

	latencyChan := make(chan time.Duration, 4096)
	p95Done := make(chan struct{})
	go func() {
		trackP95(latencyChan, &result)
		close(p95Done)
	}()

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				seq, ok := doReserve(client, *campaignID, &result, latencyChan)
				if !ok {
					continue
				}
				if _, loaded := numbers.LoadOrStore(seq, struct{}{}); loaded {
					dupes.Add(1)
				}
			}
		}()
	}

	start := time.Now()
	<-ctx.Done()
	wg.Wait()
	close(latencyChan)
	<-p95Done
	totalDur := time.Since(start)

	var avgLatency time.Duration
	if result.SuccessCount > 0 {
		avgLatency = time.Duration(result.LatencySum / result.SuccessCount)
	}
	maxSeq := 0
	numbers.Range(func(k, _ any) bool {
		maxSeq = max(maxSeq, k.(int))
		return true
	})

	fmt.Println("==========================================")
	fmt.Println("results")
	fmt.Println("==========================================")
	fmt.Printf("elapsed            : %.2fs\n", totalDur.Seconds())
	fmt.Printf("requests           : %d\n", result.TotalRequests)
	fmt.Printf("reserved           : %d\n", result.SuccessCount)
	fmt.Printf("capacity rejected  : %d\n", result.CapacityRejected)
	fmt.Printf("errors             : %d\n", result.ErrorCount)
	fmt.Printf("throughput         : %.2f req/s\n", float64(result.TotalRequests)/totalDur.Seconds())
	fmt.Printf("avg latency        : %v\n", avgLatency)
	fmt.Printf("p95 latency        : %v\n", time.Duration(result.P95Latency))
	fmt.Printf("highest number     : %d\n", maxSeq)
	fmt.Println("==========================================")

	if n := dupes.Load(); n > 0 {
		fmt.Printf("FAIL: %d sequence numbers handed to more than one session\n", n)
		os.Exit(1)
	}
	fmt.Println("OK: every sequence number is unique")
}

// doReserve performs one Reserve call with a fresh session id.
func doReserve(client *service.ReservationServiceClient, campaignID int64, result *PerfResult, latencyChan chan<- time.Duration) (int, bool) {
	// Independent context so in-flight calls finish when the run ends.
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req := connect.NewRequest(&service.ReserveRequest{CampaignID: campaignID, SessionID: uuid.NewString()})

	start := time.Now()
	atomic.AddInt64(&result.TotalRequests, 1)
	resp, err := client.Reserve(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if service.KindFromError(err) == apperr.KindCapacityExceeded {
			atomic.AddInt64(&result.CapacityRejected, 1)
		} else {
			atomic.AddInt64(&result.ErrorCount, 1)
		}
		return 0, false
	}

	atomic.AddInt64(&result.SuccessCount, 1)
	atomic.AddInt64(&result.LatencySum, latency.Nanoseconds())
	select {
	case latencyChan <- latency:
	default:
	}
	return resp.Msg.Slot.SequenceNumber, true
}

// trackP95 keeps a best-effort rolling P95 over a bounded sample.
func trackP95(latencies <-chan time.Duration, result *PerfResult) {
	const size = 1000
	buf := make([]int64, 0, size)

	for lat := range latencies {
		if len(buf) < size {
			buf = append(buf, lat.Nanoseconds())
		} else if idx := time.Now().UnixNano() % size; idx < size/10 {
			buf[idx] = lat.Nanoseconds()
		}

		if len(buf) >= 100 && len(buf)%100 == 0 {
			sorted := slices.Clone(buf)
			slices.Sort(sorted)
			i := min(int(float64(len(sorted))*0.95), len(sorted)-1)
			atomic.StoreInt64(&result.P95Latency, sorted[i])
		}
	}
}
