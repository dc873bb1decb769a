package services

import (
	"context"
	"errors"
	"testing"

	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
)

type fakeHistoryBackend struct {
	records      []models.HistoryRecord
	fetchErr     error
	deleteErr    error
	fetchCalls   int
	deleteCalls  int
	deletedIDs   []int64
	removeOnCall bool
}

func (f *fakeHistoryBackend) History(ctx context.Context, userID int64) ([]models.HistoryRecord, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]models.HistoryRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeHistoryBackend) DeleteHistory(ctx context.Context, historyID int64) error {
	f.deleteCalls++
	f.deletedIDs = append(f.deletedIDs, historyID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if f.removeOnCall {
		kept := f.records[:0]
		for _, r := range f.records {
			if r.ID != historyID {
				kept = append(kept, r)
			}
		}
		f.records = kept
	}
	return nil
}

func TestHistoryFetchNormalizes(t *testing.T) {
	prefixed := "data:image/jpeg;base64,/9j/4AAQ"
	client := &fakeHistoryBackend{
		records: []models.HistoryRecord{
			{ID: 1, Style: "pixar", OriginalImage: "aW4=", TransformedImage: prefixed},
		},
	}
	svc := NewHistoryService(client, testLogger())

	records := svc.Fetch(context.Background(), 7)

	if len(records) != 1 {
		t.Fatalf("Fetch() returned %d records, want 1", len(records))
	}
	if records[0].OriginalImage != "data:image/png;base64,aW4=" {
		t.Errorf("OriginalImage = %q, want default prefix added", records[0].OriginalImage)
	}
	// Already-prefixed fields pass through byte for byte.
	if records[0].TransformedImage != prefixed {
		t.Errorf("TransformedImage = %q, want unchanged", records[0].TransformedImage)
	}
}

func TestHistoryFetchFailureIsSilent(t *testing.T) {
	client := &fakeHistoryBackend{fetchErr: errors.New("boom")}
	svc := NewHistoryService(client, testLogger())

	if records := svc.Fetch(context.Background(), 7); records != nil {
		t.Errorf("Fetch() = %v on failure, want nil", records)
	}
}

func TestHistoryDeleteAlwaysRefetches(t *testing.T) {
	t.Run("successful delete drops the record", func(t *testing.T) {
		client := &fakeHistoryBackend{
			records: []models.HistoryRecord{
				{ID: 1, Style: "pixar"},
				{ID: 2, Style: "ghibli"},
			},
			removeOnCall: true,
		}
		svc := NewHistoryService(client, testLogger())

		records := svc.Delete(context.Background(), 1, 7)

		if client.deleteCalls != 1 || client.fetchCalls != 1 {
			t.Errorf("calls = (delete %d, fetch %d), want (1, 1)",
				client.deleteCalls, client.fetchCalls)
		}
		for _, r := range records {
			if r.ID == 1 {
				t.Error("deleted record still present after refetch")
			}
		}
	})

	t.Run("failed delete still refetches", func(t *testing.T) {
		client := &fakeHistoryBackend{
			records:   []models.HistoryRecord{{ID: 1, Style: "pixar"}},
			deleteErr: errors.New("boom"),
		}
		svc := NewHistoryService(client, testLogger())

		records := svc.Delete(context.Background(), 1, 7)

		if client.fetchCalls != 1 {
			t.Errorf("fetchCalls = %d, want refetch despite delete failure", client.fetchCalls)
		}
		if len(records) != 1 {
			t.Errorf("records = %v, want server truth kept", records)
		}
	})
}
