package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/americano-tennis/internal/domain"
	"github.com/americano-tennis/internal/kafka"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// randomResult draws a complete result for the modality
func randomResult(faker *gofakeit.Faker, modality domain.Modality) (int, int) {
	if modality == domain.ModalityGames {
		loser := faker.IntRange(0, 3)
		if faker.Bool() {
			return 4, loser
		}
		return loser, 4
	}
	team1 := faker.IntRange(0, domain.MatchPoints)
	return team1, domain.MatchPoints - team1
}

func parseMatchIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid match id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no match ids given")
	}
	return ids, nil
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "match-scores", "Kafka topic")
	matches := flag.String("matches", "", "Match IDs to report results for (comma-separated)")
	modality := flag.String("modality", string(domain.ModalityPoints), "Tournament modality: \"16 puntos\" or \"4 games\"")
	rate := flag.Int("rate", 5, "Results per second")
	reporter := flag.String("reporter", "courtside", "Value of the reported_by field")
	seed := flag.Uint64("seed", 0, "Random seed (0 = random)")
	flag.Parse()

	matchIDs, err := parseMatchIDs(*matches)
	if err != nil {
		log.Fatalf("Invalid -matches: %v", err)
	}
	mod := domain.Modality(*modality)
	if !mod.Valid() {
		log.Fatalf("Invalid -modality %q", *modality)
	}
	if *rate <= 0 {
		log.Fatalf("Invalid -rate %d", *rate)
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  Americano score producer")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:   %s\n", *brokers)
	fmt.Printf("  Topic:     %s\n", *topic)
	fmt.Printf("  Matches:   %d\n", len(matchIDs))
	fmt.Printf("  Modality:  %s\n", mod)
	fmt.Printf("  Rate:      %d/sec\n", *rate)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(strings.Split(*brokers, ","), config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}

	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	faker := gofakeit.New(*seed)
	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	next := 0
	for next < len(matchIDs) {
		select {
		case <-sigChan:
			fmt.Println("\nInterrupted")
			next = len(matchIDs)
			continue
		case <-ticker.C:
		}

		team1, team2 := randomResult(faker, mod)
		msg := kafka.ScoreMessage{
			MatchID:    matchIDs[next],
			Team1Score: &team1,
			Team2Score: &team2,
			ReportedBy: *reporter,
		}
		data, err := json.Marshal(msg)
		if err != nil {
			log.Fatalf("Failed to marshal message: %v", err)
		}

		producer.Input() <- &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(strconv.FormatInt(msg.MatchID, 10)),
			Value: sarama.ByteEncoder(data),
			Headers: []sarama.RecordHeader{
				{Key: []byte("message_id"), Value: []byte(uuid.NewString())},
			},
		}
		fmt.Printf("  match %d -> %d-%d\n", msg.MatchID, team1, team2)
		next++
	}

	producer.AsyncClose()
	wg.Wait()
	fmt.Printf("\nCompleted. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
}
