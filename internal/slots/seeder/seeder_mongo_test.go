package seeder

import (
	"context"
	"slotbook/internal/slots/repository"
	"slotbook/internal/slots/slotstest"
	"slotbook/pkg/model"
	"sync"
	"testing"
	"time"
)

func TestEnsureSlotsForDateConcurrentMongo(t *testing.T) {
	cfg := slotstest.MongoConfig(t, ist)
	slots := repository.NewMongoSlotRepository(cfg)
	date := time.Date(2024, 6, 1, 9, 0, 0, 0, ist)

	const n = 2
	var wg sync.WaitGroup
	start := make(chan struct{})
	inserted := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := NewSeeder(slots, nil, cfg).EnsureSlotsForDate(context.Background(), date)
			if err != nil {
				t.Errorf("EnsureSlotsForDate() error = %v", err)
			}
			inserted <- got
		}()
	}
	close(start)
	wg.Wait()
	close(inserted)

	total := 0
	for got := range inserted {
		total += got
	}
	want := len(model.DailySchedule)
	if total != want {
		t.Errorf("inserted %d in total, want %d", total, want)
	}
	if got := slotstest.CountDocuments(t, cfg, repository.SlotsCollectionName); got != int64(want) {
		t.Errorf("slots = %d, want %d", got, want)
	}
}
