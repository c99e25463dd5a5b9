package dxa

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func archiveWithRawPlans(t *testing.T, files map[string][]byte, key []byte) (*Archive, []ExtractPlan) {
	t.Helper()

	var archiveBytes []byte
	var plans []ExtractPlan
	var names []string
	for name := range files {
		names = append(names, name)
	}
	// deterministic ordering for deterministic DataStart assignment
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[j] < names[i] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}

	for _, name := range names {
		plaintext := files[name]
		cipher := append([]byte(nil), plaintext...)
		xorApply(cipher, int64(len(plaintext)), key)

		plans = append(plans, ExtractPlan{
			Path:          name,
			DataStart:     uint64(len(archiveBytes)),
			DataSize:      uint64(len(plaintext)),
			PressSize:     sentinelAddr,
			HuffPressSize: sentinelAddr,
			CipherKey:     key,
		})
		archiveBytes = append(archiveBytes, cipher...)
	}

	a := &Archive{r: memReaderAt(archiveBytes), h: &header{ver: versionV8}, plans: plans}
	return a, plans
}

func TestExtractAllCallsSinkForEveryPlan(t *testing.T) {
	key := []byte{1, 2, 3, 4}
	files := map[string][]byte{
		"a.txt": []byte("alpha"),
		"b.txt": []byte("beta"),
		"c.txt": []byte("gamma delta"),
	}
	a, plans := archiveWithRawPlans(t, files, key)

	var mu sync.Mutex
	got := map[string][]byte{}

	err := ExtractAll(context.Background(), a, plans, 2, func(p ExtractPlan, data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got[p.Path] = append([]byte(nil), data...)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}

	for name, want := range files {
		if string(got[name]) != string(want) {
			t.Fatalf("path %q: got %q, want %q", name, got[name], want)
		}
	}
}

func TestExtractAllPropagatesSinkError(t *testing.T) {
	key := []byte{9}
	files := map[string][]byte{"only.txt": []byte("x")}
	a, plans := archiveWithRawPlans(t, files, key)

	sentinel := errors.New("sink boom")
	err := ExtractAll(context.Background(), a, plans, 1, func(ExtractPlan, []byte) error {
		return sentinel
	}, nil)
	if !errors.Is(err, sentinel) {
		t.Fatalf("ExtractAll error = %v, want %v", err, sentinel)
	}
}

func TestExtractAllZeroConcurrencyStillRuns(t *testing.T) {
	key := []byte{5}
	files := map[string][]byte{"f.txt": []byte("data")}
	a, plans := archiveWithRawPlans(t, files, key)

	var count int
	err := ExtractAll(context.Background(), a, plans, 0, func(ExtractPlan, []byte) error {
		count++
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if count != 1 {
		t.Fatalf("sink called %d times, want 1", count)
	}
}
