package game

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/rapidpoker/go/internal/models"
)

func TestRegistry_Create(t *testing.T) {
	r := NewRegistry(clockwork.NewFakeClock())

	g, err := r.Create("abc123")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if g.ID != "abc123" || g.AreCardsRevealed || len(g.Players) != 0 {
		t.Errorf("unexpected new game: %+v", g)
	}

	if _, err := r.Create("abc123"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := r.Create(""); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 game, got %d", r.Len())
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry(nil)

	g, ok := r.Get("zzz999")
	if ok || g != nil {
		t.Errorf("expected absent game, got %+v", g)
	}
}

func TestRegistry_CreateOrGet(t *testing.T) {
	r := NewRegistry(nil)

	_, created, err := r.CreateOrGet("abc123")
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}
	if _, err := r.Update("abc123", func(g *models.Game) error { return Join(g, "p1", "Alice") }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	g, created, err := r.CreateOrGet("abc123")
	if err != nil || created {
		t.Fatalf("expected existing game, got created=%v err=%v", created, err)
	}
	if len(g.Players) != 1 {
		t.Errorf("expected existing roster, got %+v", g.Players)
	}
}

func TestRegistry_SnapshotsAreIsolated(t *testing.T) {
	r := NewRegistry(nil)
	_, _ = r.Create("abc123")
	_, _ = r.Update("abc123", func(g *models.Game) error { return Join(g, "p1", "Alice") })

	snap, _ := r.Get("abc123")
	snap.Players[0].Name = "Mallory"
	snap.AreCardsRevealed = true

	fresh, _ := r.Get("abc123")
	if fresh.Players[0].Name != "Alice" || fresh.AreCardsRevealed {
		t.Errorf("mutating a snapshot leaked into the registry: %+v", fresh)
	}
}

func TestRegistry_UpdateVersions(t *testing.T) {
	r := NewRegistry(nil)
	_, _ = r.Create("abc123")

	g1, err := r.Update("abc123", Reveal)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	g2, err := r.Update("abc123", Restart)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if g1.Version != 1 || g2.Version != 2 {
		t.Errorf("expected versions 1 and 2, got %d and %d", g1.Version, g2.Version)
	}
}

func TestRegistry_FailedUpdateLeavesGameUnchanged(t *testing.T) {
	r := NewRegistry(nil)
	_, _ = r.Create("abc123")
	_, _ = r.Update("abc123", func(g *models.Game) error { return Join(g, "p1", "Alice") })

	boom := errors.New("boom")
	_, err := r.Update("abc123", func(g *models.Game) error {
		g.Players[0].Name = "half-applied"
		g.AreCardsRevealed = true
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	g, _ := r.Get("abc123")
	if g.Players[0].Name != "Alice" || g.AreCardsRevealed || g.Version != 1 {
		t.Errorf("failed update leaked state: %+v", g)
	}
}

func TestRegistry_PanicReleasesLock(t *testing.T) {
	r := NewRegistry(nil)
	_, _ = r.Create("abc123")

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		_, _ = r.Update("abc123", func(g *models.Game) error {
			panic("mutation blew up")
		})
	}()

	done := make(chan struct{})
	go func() {
		_, _ = r.Update("abc123", Reveal)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("game lock was not released after panic")
	}
}

func TestRegistry_UpdateMissing(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Update("zzz999", Reveal)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_CommitSeesSnapshotUnderLock(t *testing.T) {
	r := NewRegistry(nil)
	_, _ = r.Create("abc123")

	var seen []uint64
	for i := 0; i < 3; i++ {
		_, err := r.Update("abc123", Reveal, func(s *models.Game) {
			seen = append(seen, s.Version)
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}
	if fmt.Sprint(seen) != "[1 2 3]" {
		t.Errorf("expected commits in version order, got %v", seen)
	}

	_, _ = r.Update("abc123", func(*models.Game) error { return ErrNameTaken }, func(*models.Game) {
		t.Error("commit func must not run for failed mutations")
	})
}

func TestRegistry_ConcurrentSelectionsAreNotLost(t *testing.T) {
	r := NewRegistry(nil)
	_, _ = r.Create("abc123")

	const players = 50
	for i := 0; i < players; i++ {
		id := fmt.Sprintf("p%d", i)
		_, err := r.Update("abc123", func(g *models.Game) error { return Join(g, id, "name-"+id) })
		if err != nil {
			t.Fatalf("join %s failed: %v", id, err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("p%d", i)
			_, err := r.Update("abc123", func(g *models.Game) error {
				return SelectCard(g, id, fmt.Sprint(i), true)
			})
			if err != nil {
				t.Errorf("select for %s failed: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	g, _ := r.Get("abc123")
	if got := g.SelectedCount(); got != players {
		t.Errorf("expected %d selections, got %d", players, got)
	}
	if g.Version != 2*players {
		t.Errorf("expected version %d, got %d", 2*players, g.Version)
	}
}

func TestRegistry_ConcurrentJoinsKeepNamesUnique(t *testing.T) {
	r := NewRegistry(nil)
	_, _ = r.Create("abc123")

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Update("abc123", func(g *models.Game) error {
				return Join(g, fmt.Sprintf("p%d", i), "Alice")
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, ErrNameTaken) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("expected exactly one Alice, got %d", succeeded)
	}
	g, _ := r.Get("abc123")
	if len(g.Players) != 1 {
		t.Errorf("expected 1 player, got %d", len(g.Players))
	}
}

func TestRegistry_GamesDoNotBlockEachOther(t *testing.T) {
	r := NewRegistry(nil)
	_, _ = r.Create("a")
	_, _ = r.Create("b")

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = r.Update("a", func(g *models.Game) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	done := make(chan struct{})
	go func() {
		_, _ = r.Update("b", func(g *models.Game) error { return Join(g, "p1", "Bob") })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("update on game b blocked behind game a")
	}

	gb, ok := r.Get("b")
	if !ok || len(gb.Players) != 1 {
		t.Errorf("unexpected game b: %+v", gb)
	}
}

func TestRegistry_Delete(t *testing.T) {
	r := NewRegistry(nil)
	_, _ = r.Create("abc123")

	if !r.Delete("abc123") {
		t.Fatal("expected delete to report existing game")
	}
	if r.Delete("abc123") {
		t.Error("second delete should report missing game")
	}
	if _, err := r.Update("abc123", Reveal); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRegistry_Stats(t *testing.T) {
	r := NewRegistry(nil)
	_, _ = r.Create("a")
	_, _ = r.Create("b")
	_, _ = r.Update("a", func(g *models.Game) error {
		if err := Join(g, "p1", "Alice"); err != nil {
			return err
		}
		return SelectCard(g, "p1", "3", true)
	})
	_, _ = r.Update("b", Reveal)

	stats := r.Stats()
	if stats.Games != 2 || stats.Players != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Phases[models.GamePhaseSelecting] != 1 || stats.Phases[models.GamePhaseRevealed] != 1 {
		t.Errorf("unexpected phase counts: %+v", stats.Phases)
	}
}
